// gltfexport is a CLI utility converting YAML scene descriptions into
// glTF 2.0 documents or GLB binary containers.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/gltfexport/internal/config"
	"github.com/Faultbox/gltfexport/internal/logger"
	"github.com/Faultbox/gltfexport/internal/scenefile"
	"github.com/Faultbox/gltfexport/pkg/gltf"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	os.Args = append(os.Args[:1], os.Args[2:]...)
	config.ParseFlags()

	switch command {
	case "convert", "c":
		cmdConvert()
	case "inspect", "i":
		cmdInspect()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gltfexport - scene description to glTF 2.0 converter

Usage:
  gltfexport <command> [options] <args>

Commands:
  convert <scene.yaml> [output]   Convert a scene description
  inspect <file.gltf|file.glb>    Show document and container statistics

Options:
  -config <path>   Use a specific config file
  -format <fmt>    Output format: gltf or glb
  -permissive      Downgrade some format-validity errors to warnings
  -flip            Flip the Z axis of node transforms
  -keep-defaults   Emit values matching schema defaults
  -embed           Embed images into the binary payload
  -debug           Enable debug logging

Examples:
  gltfexport convert scene.yaml scene.glb
  gltfexport convert -format gltf scene.yaml
  gltfexport inspect scene.glb`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func cmdConvert() {
	args := flagArgs()
	if len(args) < 1 {
		fatal("usage: gltfexport convert <scene.yaml> [output]")
	}
	scenePath := args[0]

	cfg, err := config.Load()
	if err != nil {
		fatal("%v", err)
	}

	outPath := ""
	if len(args) >= 2 {
		outPath = args[1]
		// The output extension wins over the configured format.
		switch strings.ToLower(filepath.Ext(outPath)) {
		case ".glb":
			cfg.Output.Format = "glb"
		case ".gltf":
			cfg.Output.Format = "gltf"
		}
	} else {
		ext := ".glb"
		if cfg.Output.Format == "gltf" {
			ext = ".gltf"
		}
		base := strings.TrimSuffix(scenePath, filepath.Ext(scenePath))
		outPath = base + ext
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	if err != nil {
		fatal("initializing logger: %v", err)
	}
	defer log.Sync()

	f, err := scenefile.Load(scenePath)
	if err != nil {
		fatal("%v", err)
	}

	sess := gltf.NewSession(cfg.SessionOptions(log))

	images, err := f.LoadImages(filepath.Dir(scenePath))
	if err != nil {
		fatal("%v", err)
	}
	for i := range images {
		if _, err := sess.AddImage(&images[i]); err != nil {
			fatal("adding image %d: %v", i, err)
		}
	}
	for i, tex := range f.SceneTextures() {
		if _, err := sess.AddTexture(&tex); err != nil {
			fatal("adding texture %d: %v", i, err)
		}
	}
	for i, mat := range f.SceneMaterials() {
		if _, err := sess.AddMaterial(&mat); err != nil {
			fatal("adding material %d: %v", i, err)
		}
	}
	for i, mesh := range f.SceneMeshes() {
		if _, err := sess.AddMesh(&mesh); err != nil {
			fatal("adding mesh %d: %v", i, err)
		}
	}
	if _, err := sess.AddScene(f.Scene()); err != nil {
		fatal("adding scene: %v", err)
	}
	if err := sess.Finalize(outPath); err != nil {
		fatal("finalizing: %v", err)
	}
	fmt.Printf("Wrote %s\n", outPath)
}

func cmdInspect() {
	args := flagArgs()
	if len(args) < 1 {
		fatal("usage: gltfexport inspect <file.gltf|file.glb>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fatal("%v", err)
	}

	doc := data
	if len(data) >= 4 && string(data[:4]) == "glTF" {
		j, payload, err := gltf.ReadGLB(data)
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Container: %d bytes total\n", len(data))
		fmt.Printf("JSON chunk:   %d bytes (padded)\n", len(j))
		if payload != nil {
			fmt.Printf("Binary chunk: %d bytes (padded)\n", len(payload))
		} else {
			fmt.Println("Binary chunk: absent")
		}
		doc = j
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(doc, &sections); err != nil {
		fatal("parsing document: %v", err)
	}
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("Sections:")
	for _, name := range names {
		var arr []json.RawMessage
		if err := json.Unmarshal(sections[name], &arr); err == nil {
			fmt.Printf("  %-20s %d\n", name, len(arr))
		} else {
			fmt.Printf("  %-20s %s\n", name, truncate(string(sections[name]), 60))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func flagArgs() []string {
	return flag.Args()
}
