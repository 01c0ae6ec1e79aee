// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saferwall/uadetect"
	"github.com/saferwall/uadetect/ulog"
)

var (
	binaryFilePath string
	memoryMode     bool
	tier           string
)

func prettyPrint(v interface{}) string {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, buf, "", "  "); err != nil {
		return string(buf)
	}
	return pretty.String()
}

func openProvider() (*uadetect.Provider, error) {
	cfg := uadetect.DefaultConfig()
	cfg.BinaryFilePath = binaryFilePath
	cfg.MemoryMode = memoryMode
	cfg.Logger = ulog.NewFilter(ulog.NewStdLogger(), ulog.LevelWarn)
	return uadetect.OpenProvider(cfg)
}

func matchOne(p *uadetect.Provider, ua string) {
	m, err := p.Match([]byte(ua))
	if err != nil {
		fmt.Fprintf(os.Stderr, "match %q: %v\n", ua, err)
		return
	}

	out := map[string]interface{}{
		"userAgent":          ua,
		"method":             m.Method.String(),
		"deviceId":           m.DeviceId(),
		"difference":         m.Difference,
		"nodesEvaluated":     m.NodesEvaluated,
		"signaturesCompared": m.SignaturesCompared,
		"elapsed":            m.Elapsed.String(),
		"isComplete":         m.IsComplete,
	}
	fmt.Println(prettyPrint(out))
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "uadetectctl",
		Short: "Inspect a uadetect binary data file and match User-Agents against it",
	}
	rootCmd.PersistentFlags().StringVarP(&binaryFilePath, "file", "f", "", "path to the uadetect data file")
	rootCmd.PersistentFlags().BoolVarP(&memoryMode, "memory", "m", true, "mmap the data file instead of streaming it")
	rootCmd.MarkPersistentFlagRequired("file")

	matchCmd := &cobra.Command{
		Use:   "match [user-agent ...]",
		Short: "Match one or more User-Agent strings",
		Long:  "Match one or more User-Agent strings given as arguments, or one per line on stdin if none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProvider()
			if err != nil {
				return err
			}
			defer p.Dispose()

			if len(args) > 0 {
				for _, ua := range args {
					matchOne(p, ua)
				}
				return nil
			}

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				matchOne(p, scanner.Text())
			}
			return scanner.Err()
		},
	}

	propertiesCmd := &cobra.Command{
		Use:   "properties",
		Short: "List every property, optionally filtered to a named tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProvider()
			if err != nil {
				return err
			}
			defer p.Dispose()

			props, err := p.Properties(tier)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(props))
			for _, prop := range props {
				name, err := prop.Name()
				if err != nil {
					return err
				}
				names = append(names, name)
			}
			fmt.Println(prettyPrint(names))
			return nil
		},
	}
	propertiesCmd.Flags().StringVar(&tier, "tier", "", "restrict to properties belonging to this Map/tier")

	componentsCmd := &cobra.Command{
		Use:   "components",
		Short: "List every component",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProvider()
			if err != nil {
				return err
			}
			defer p.Dispose()

			components, err := p.Components()
			if err != nil {
				return err
			}
			names := make([]string, 0, len(components))
			for _, c := range components {
				name, err := c.Name()
				if err != nil {
					return err
				}
				names = append(names, name)
			}
			fmt.Println(prettyPrint(names))
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the data file's format version and publish date",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProvider()
			if err != nil {
				return err
			}
			defer p.Dispose()

			h := p.Dataset().Header()
			fmt.Printf("format %d.%d, published %s, min UA length %d\n",
				h.VersionMajor, h.VersionMinor, h.Published.Format("2006-01-02"), h.MinUserAgentLength)
			return nil
		},
	}

	rootCmd.AddCommand(matchCmd, propertiesCmd, componentsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
