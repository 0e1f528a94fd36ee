package main

import (
	"flag"
	"log"
	"runtime"

	"terradrift/internal/config"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	seed := flag.Int64("seed", config.GetSeed(), "world seed")
	viewDistance := flag.Int("view-distance", config.GetBaseViewDistance(), "base view distance in chunks")
	fpsLimit := flag.Int("fps", config.GetFPSLimit(), "frame rate cap, 0 to disable")
	fontPath := flag.String("font", "assets/fonts/mono.ttf", "TTF font for the debug overlay")
	flag.Parse()

	config.SetSeed(*seed)
	config.SetBaseViewDistance(*viewDistance)
	config.SetFPSLimit(*fpsLimit)

	if err := glfw.Init(); err != nil {
		log.Fatalf("glfw init: %v", err)
	}
	defer glfw.Terminate()

	window, err := setupWindow()
	if err != nil {
		log.Fatalf("window setup: %v", err)
	}

	components, err := setupGame(window, *fontPath)
	if err != nil {
		log.Fatalf("game setup: %v", err)
	}
	defer components.Dispose()

	NewGameLoop(window, components).Run()
}
