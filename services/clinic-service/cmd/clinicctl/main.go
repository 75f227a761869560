package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/JohanU89-coder/clinica-monteluz/libs/config"
	"github.com/alecthomas/kong"
)

var CLI struct {
	API      string `help:"Clinic API base URL (gateway or clinic-service)." env:"CLINIC_API_URL" default:"http://localhost:8080"`
	Token    string `help:"Bearer token for the gateway." env:"CLINIC_TOKEN"`
	User     string `help:"Caller id sent as X-User-Id when talking to clinic-service directly." env:"CLINIC_USER_ID"`
	Role     string `help:"Caller role sent with --user." env:"CLINIC_ROLE" default:"patient"`
	Timezone string `help:"Clinic timezone." env:"CLINIC_TIMEZONE" default:"America/Lima"`

	Preview PreviewCmd `cmd:"" help:"Generate slots offline from a JSON schedule file."`
	Slots   SlotsCmd   `cmd:"" help:"List a doctor's open slots."`
	Book    BookCmd    `cmd:"" help:"Book a slot, retrying once if it is taken."`
	Health  HealthCmd  `cmd:"" help:"Probe the clinic-service gRPC health endpoint."`
}

func main() {
	_ = config.LoadDotEnv()

	ctx := kong.Parse(&CLI,
		kong.Name("clinicctl"),
		kong.Description("Clínica Monteluz scheduling tool"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	appCtx, err := newContext(CLI.API, CLI.Token, CLI.User, CLI.Role, CLI.Timezone, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
