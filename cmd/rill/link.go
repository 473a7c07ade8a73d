package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rill/internal/commands"
	"rill/internal/config"
	"rill/internal/diag"
	"rill/internal/engine"
	"rill/internal/id"
	"rill/internal/linker"
	"rill/internal/modcache"
	"rill/internal/parser"
	"rill/internal/source"
)

var linkCmd = &cobra.Command{
	Use:   "link <module>",
	Short: "Load or re-link a module and list its exports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		es := newEngine()
		quiet, _ := cmd.Flags().GetBool("quiet")

		moduleID, err := loadModule(es, args[0])
		if err != nil {
			reportLoadError(es, err)
			return err
		}
		if quiet {
			return nil
		}
		module := es.GetModule(moduleID)
		fmt.Printf("linked module %s\n", module.Name)
		for _, exp := range module.Exports() {
			fmt.Printf("  %s\n", exp.Name)
		}
		return nil
	},
}

// newEngine builds an engine state with the native commands
// registered, ready for user parsing.
func newEngine() *engine.EngineState {
	es := engine.NewEngineState()
	es.AddBaseDecl(commands.Where{})
	es.AddBaseDecl(commands.Link{})
	return es
}

// loadModule links a module through the runtime linker and records its
// metadata in the disk cache when the manifest enables it.
func loadModule(es *engine.EngineState, path string) (mod id.Module, err error) {
	manifest, err := config.LoadOrDefault(".")
	if err != nil {
		return 0, err
	}

	// Register the argument as a virtual source line so parse
	// diagnostics have a real span to point at.
	argFile := es.Files.Add("<commandline>", []byte(path))
	moduleID, err := linker.Load(es, parser.ScriptParser{}, source.WithSpan(path, argFile.Span))
	if err != nil {
		return 0, err
	}

	if manifest.Cache {
		cacheModule(es, moduleID, path)
	}
	return moduleID, nil
}

// cacheModule writes best-effort metadata; cache failures never fail
// the link.
func cacheModule(es *engine.EngineState, moduleID id.Module, path string) {
	cache, err := modcache.Open("rill")
	if err != nil {
		return
	}
	module := es.GetModule(moduleID)
	if module == nil {
		return
	}
	payload := modcache.Payload{Name: module.Name, Path: path}
	for _, exp := range module.Exports() {
		if exp.Kind == engine.ExportDecl {
			payload.ExportedDecls = append(payload.ExportedDecls, exp.Name)
		}
	}
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return
	}
	_ = cache.Put(modcache.DigestOf(content), &payload)
}

func reportLoadError(es *engine.EngineState, err error) {
	var parseErr *engine.ParseFailedError
	if errors.As(err, &parseErr) {
		bag := diag.NewBag(1)
		bag.Add(parseErr.Diag)
		diag.Render(os.Stderr, es.Files, bag, true)
	}
}
