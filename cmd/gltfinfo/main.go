// gltfinfo imports glTF models without a graphics context and prints what
// the renderer would see.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
	"github.com/Faultbox/dreamfield/internal/engine/model"
	"github.com/Faultbox/dreamfield/internal/logger"
)

type section func(io.Writer, Report)

var commands = map[string]section{
	"info":     writeSummary,
	"nodes":    writeNodes,
	"lights":   writeLights,
	"anims":    writeAnimations,
	"textures": writeTextures,
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "help", "-h", "--help":
		printUsage()
		return
	}
	write, ok := commands[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err := run(command, write, args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gltfinfo - glTF model inspector

Usage:
  gltfinfo <command> [options] <file.gltf|file.glb>

Commands:
  info      Show counts and bounds
  nodes     List nodes and drawables
  lights    List lights and skins
  anims     List animations
  textures  List textures and their samplers

Options:
  -json            Print the full report as JSON
  -strict          Fail on unreadable extras
  -rename          Rename duplicate animation names instead of failing
  -bits N          Quantize textures to N bits per channel
  -keep-mipmaps    Keep mipmap filters from the file
  -debug           Log import stages

Examples:
  gltfinfo info scene.glb
  gltfinfo anims -json character.gltf`)
}

func run(command string, write section, args []string, out io.Writer) error {
	opts := model.DefaultImportOptions()
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	strict := fs.Bool("strict", false, "Fail on unreadable extras")
	rename := fs.Bool("rename", false, "Rename duplicate animations")
	bits := fs.Uint("bits", uint(opts.TextureBits), "Texture bits per channel")
	keepMips := fs.Bool("keep-mipmaps", false, "Keep mipmap filters")
	debug := fs.Bool("debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: gltfinfo %s [options] <file>", command)
	}
	if *debug {
		if err := logger.Init("debug", ""); err != nil {
			return err
		}
		defer logger.Sync()
	}

	opts.StrictExtras = *strict
	if *keepMips {
		opts.StripMipmapFilters = false
	}
	opts.TextureBits = uint8(min(*bits, 8))
	if *rename {
		opts.DuplicateAnimations = model.DuplicateRename
	}

	path := fs.Arg(0)
	dev := gpu.NewRecorder()
	m, err := model.LoadFile(dev, path, opts)
	if err != nil {
		return err
	}
	defer m.Release(dev)

	r := buildReport(path, m)
	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	write(out, r)
	return nil
}
