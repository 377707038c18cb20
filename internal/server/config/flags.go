package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophlicense/internal/flagx"
)

var knownFlags = []string{"-a", "-d", "-x", "-n", "-p", "-g", "-m", "-i", "-o", "-l", "-L", "-N", "-e", "-r"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   license listener address (e.g. ":8401")
//	-d string   database DSN
//	-x string   database driver: sqlite or postgres
//	-n string   admin name
//	-p string   admin password
//	-g string   gRPC health address
//	-m string   metrics/admin HTTP address
//	-i string   payload image location
//	-o string   payload offsets location
//	-l string   log level
//	-L string   connection log file
//	-N string   NATS URL
//	-e string   S3 base endpoint
//	-r string   S3 region
//
// Durations are configured through the config file or the environment.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to listen on")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DatabaseDriver, "x", config.DatabaseDriver, "database driver (sqlite|postgres)")
	fs.StringVar(&config.AdminName, "n", config.AdminName, "admin name")
	fs.StringVar(&config.AdminPassword, "p", config.AdminPassword, "admin password")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health address")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics HTTP address")
	fs.StringVar(&config.PayloadImage, "i", config.PayloadImage, "payload image path or s3:// URL")
	fs.StringVar(&config.PayloadOffsets, "o", config.PayloadOffsets, "payload offsets path or s3:// URL")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.ConnLogPath, "L", config.ConnLogPath, "connection log file")
	fs.StringVar(&config.NatsURL, "N", config.NatsURL, "NATS URL")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
