// Package config loads rvue configuration.
//
// Settings come from three places, later ones winning:
//
//  1. built-in defaults (New)
//  2. rvue.yaml in the working directory
//  3. RVUE_* variables from the process environment or a .env file next to
//     rvue.yaml; the process environment takes precedence over .env
//
// # Configuration File Structure
//
//	runtime:
//	  maxPasses: 100
//	frame:
//	  interval: 16ms
//	compositor:
//	  layers: [base, overlay]
//	raster:
//	  width: 640
//	  height: 480
//	  background: "#ffffff"
//	text:
//	  cacheSize: 512
//	inspect:
//	  addr: 127.0.0.1:7070
//	metrics:
//	  namespace: rvue
//	snapshot:
//	  dir: snapshots
//	  bucket: ""
//	  prefix: frames/
//	  region: us-east-1
//	  endpoint: ""
//	log:
//	  level: info
//	  format: text
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := cfg.Logger(os.Stderr)
package config
