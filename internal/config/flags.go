package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagAsset      = flag.String("asset", "", "Asset path or URL (.glb/.gltf)")
	flagDecoder    = flag.String("decoder", "", "Compressed geometry decoder location")
	flagProfile    = flag.String("profile", "", "Force device profile: compact or standard")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagAddr       = flag.String("addr", "", "Asset server listen address")
	flagRoot       = flag.String("root", "", "Asset server root directory")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagAsset != "" {
		cfg.Viewer.AssetPath = *flagAsset
	}
	if *flagDecoder != "" {
		cfg.Viewer.DecoderLocation = *flagDecoder
	}
	if *flagProfile != "" {
		cfg.Graphics.Profile = *flagProfile
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagAddr != "" {
		cfg.Server.Addr = *flagAddr
	}
	if *flagRoot != "" {
		cfg.Server.Root = *flagRoot
	}
}
