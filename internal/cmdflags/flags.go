package cmdflags

import (
	"github.com/avelar/confidant/webapp"
	"github.com/urfave/cli/v2"
)

func Store(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "store",
		Aliases:     []string{"s"},
		Usage:       "Directory holding the account store",
		Destination: out,
		Value:       *out,
	}
}

func GoogleClientIDEnvVar(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = webapp.GoogleClientIDEnvVar
	}
	return &cli.StringFlag{
		Name:        "google-client-id-envvar-name",
		Usage:       "Name of the environment variable that holds the Google OAuth client id",
		Value:       *out,
		Destination: out,
	}
}

func GoogleClientSecretEnvVar(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = webapp.GoogleClientSecretEnvVar
	}
	return &cli.StringFlag{
		Name:        "google-client-secret-envvar-name",
		Usage:       "Name of the environment variable that holds the Google OAuth client secret. The secret itself should not be passed as an argument",
		Value:       *out,
		Destination: out,
	}
}
