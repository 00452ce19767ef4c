package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/flagx"
)

// parseFlags overlays short command-line flags:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC health bind address
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-o int      one-time code validity, minutes
//	-l string   log level
//	-n string   notifier backend (log|rabbitmq|pubsub)
//	-b string   archive backend (none|s3|minio|gcs)
//
// Other arguments (subcommands, -c) are filtered out first.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-t", "-r", "-o", "-l", "-n", "-b"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCHealthAddr, "g", config.GRPCHealthAddr, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshMinutes := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	otpMinutes := fs.Int("o", int(config.OTPValidityDuration.Minutes()), "one-time code validity (in minutes)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.Notifier, "n", config.Notifier, "notifier backend")
	fs.StringVar(&config.Archive, "b", config.Archive, "archive backend")

	if err := fs.Parse(args); err != nil {
		return err
	}

	setMinutes := func(name string, dst *time.Duration, v int) {
		if flagSet(fs, name) {
			*dst = time.Duration(v) * time.Minute
		}
	}
	setMinutes("t", &config.AccessTokenValidityDuration, *accessMinutes)
	setMinutes("r", &config.RefreshTokenValidityDuration, *refreshMinutes)
	setMinutes("o", &config.OTPValidityDuration, *otpMinutes)

	return nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
