package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kos-tools/kld/archive"
	"github.com/kos-tools/kld/core"
	"github.com/kos-tools/kld/internal/buildlog"
	"github.com/kos-tools/kld/link"
	"github.com/kos-tools/kld/mapfile"
	"github.com/kos-tools/kld/menuet"
	"github.com/kos-tools/kld/objfile"
	"github.com/kos-tools/kld/resolvefiles"
)

var (
	cfgFile    string
	outputPath string
	mapPath    string
	libDirs    []string
	libNames   []string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "kld [objects and archives...]",
	Short: "Link ELF32 objects and archives into a MENUET01 flat binary",
	Args:  cobra.ArbitraryArgs,
	RunE:  runLink,
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "kos_app", "output file path")
	rootCmd.Flags().StringVarP(&mapPath, "map", "", "", "write a human-readable link map to this path")
	rootCmd.Flags().StringArrayVarP(&libDirs, "L", "L", nil, "add a library search directory")
	rootCmd.Flags().StringArrayVarP(&libNames, "l", "l", nil, "link against lib<name>")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .kld.yaml in the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level build log")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".kld")
	}
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

// Execute runs the root command. It is called once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runLink(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := buildlog.New(outputPath, verbose)
	if err != nil {
		return fmt.Errorf("opening build log: %w", err)
	}
	defer closeLog()

	files := resolvefiles.Resolve(args, libNames, libDirs)

	objs, err := readObjects(files, logger)
	if err != nil {
		return err
	}

	image, entries, err := linkObjects(objs, logger)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, image, 0o755); err != nil {
		return err
	}
	logger.Info("wrote image", "path", outputPath, "bytes", len(image))

	if mapPath != "" {
		mf, err := os.Create(mapPath)
		if err != nil {
			return err
		}
		defer mf.Close()
		if err := mapfile.Write(mf, entries); err != nil {
			return err
		}
	}

	return nil
}

// readObjects reads every resolved object path and archive member into
// a parsed objfile.File, tagging each with the identity link.Analyze
// needs to build symbol tags.
func readObjects(files resolvefiles.Files, logger *slog.Logger) ([]link.Object, error) {
	var objs []link.Object

	for _, path := range files.Objects {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		f, err := objfile.Open(data)
		if err != nil {
			return nil, &link.ParseFailureError{Object: path, Err: err}
		}
		logger.Debug("read object", "path", path, "arch", f.Machine.Arch())
		objs = append(objs, link.Object{Name: path, File: f})
	}

	for _, path := range files.Archives {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		members, err := archive.Read(data)
		if err != nil {
			return nil, &link.ParseFailureError{Object: path, Err: err}
		}
		for _, m := range members {
			f, err := objfile.Open(m.Data)
			if err != nil {
				return nil, &link.ParseFailureError{Object: path + "(" + m.Name + ")", Err: err}
			}
			logger.Debug("read archive member", "archive", path, "member", m.Name)
			objs = append(objs, link.Object{Archive: path, Name: m.Name, File: f})
		}
	}

	return objs, nil
}

// linkObjects runs the analyze/layout/relocate pipeline over objs and
// assembles the MENUET01 image and its link map, the part of the
// command that doesn't touch the filesystem.
func linkObjects(objs []link.Object, logger *slog.Logger) (image []byte, mapEntries []mapfile.Entry, err error) {
	sections := core.NewSections()
	symbols := core.NewSymbols()
	if err := link.Analyze(objs, sections, symbols); err != nil {
		return nil, nil, err
	}
	logger.Debug("analysis complete", "sections", sections.Len())

	layout, err := link.RunLayout(sections, symbols)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("layout complete", "code_bytes", len(layout.Code), "data_bytes", len(layout.Data))

	codeBase, dataBase := menuet.Bases(len(layout.Code), len(layout.Data))
	if err := link.Relocate(layout, sections, symbols, codeBase, dataBase); err != nil {
		return nil, nil, err
	}

	image = menuet.Build(layout.Code, layout.Data)
	mapEntries = mapfile.Build(layout, codeBase, dataBase)
	return image, mapEntries, nil
}
