// Package config provides configuration management for ioctest.
//
// Configuration is layered: later sources override earlier ones.
//
//  1. Default Configuration (embedded in binary)
//     - Production limits and timings for the base unit
//
//  2. User Configuration (~/.config/ioctest/config.yaml)
//     - Station-specific settings such as the serial port
//
//  3. Project Configuration (./.ioctest/config.yaml)
//     - Settings shared by a test bench setup
//
// LoadConfigFile skips layers 2 and 3 and applies a single explicit file
// over the defaults.
//
// # Configuration Structure
//
//	serial:
//	  port: /dev/ttymxc3
//	  baud_rate: 115200
//	timing:
//	  reply_timeout: 1s
//	  aggregate_timeout: 5s
//	limits:
//	  analog:
//	    2: {lower: 2375, upper: 2750}
//	cuff:
//	  threshold: 40
//	  attempts: 3
//	output:
//	  color: true
//	  report_dir: /var/log/ioctest
//
// Only the keys present in a file are overridden; maps such as
// limits.analog are merged per channel.
package config
