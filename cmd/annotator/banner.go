package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	_ "image/png"

	"github.com/fatih/color"
	"github.com/qeesung/image2ascii/convert"
)

//go:embed assets/logo.png
var logoData []byte

func printAsciiLogo() {
	img, _, err := image.Decode(bytes.NewReader(logoData))
	if err != nil {
		fmt.Println("ANNOTATOR")
		return
	}

	opts := convert.DefaultOptions
	opts.FixedWidth = 48
	opts.FixedHeight = 12

	converter := convert.NewImageConverter()
	fmt.Print(converter.Image2ASCIIString(img, &opts))
}

func printSignature(name, version, env string) {
	cyan := color.New(color.FgHiCyan, color.Bold).SprintFunc()
	white := color.New(color.FgWhite).SprintFunc()

	fmt.Println()
	fmt.Printf("%s : %s\n", cyan("Service    "), white(name))
	fmt.Printf("%s : %s\n", cyan("Version    "), white(version))
	fmt.Printf("%s : %s\n", cyan("Environment"), white(env))
	fmt.Println()
}
