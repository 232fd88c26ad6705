package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

// MongoDB 8.0 installation procedure for Ubuntu 24.04 (Noble). The steps have
// ordering dependencies: the repository must be registered and refreshed
// before mongodb-org can resolve, so the sequencer stops at the first
// failure instead of attempting later steps.
var ubuntuSteps = []struct {
	description string
	command     string
}{
	{
		"Updating package database",
		"apt-get update",
	},
	{
		"Installing dependencies",
		"apt-get install -y gnupg curl",
	},
	{
		"Importing MongoDB GPG key",
		"curl -fsSL https://www.mongodb.org/static/pgp/server-8.0.asc | gpg --yes -o /usr/share/keyrings/mongodb-server-8.0.gpg --dearmor",
	},
	{
		"Adding MongoDB repository",
		`echo "deb [ arch=amd64,arm64 signed-by=/usr/share/keyrings/mongodb-server-8.0.gpg ] https://repo.mongodb.org/apt/ubuntu noble/mongodb-org/8.0 multiverse" | tee /etc/apt/sources.list.d/mongodb-org-8.0.list`,
	},
	{
		"Updating MongoDB package database",
		`apt-get update -o Dir::Etc::sourcelist="sources.list.d/mongodb-org-8.0.list" -o Dir::Etc::sourceparts="-" -o APT::Get::List-Cleanup="0"`,
	},
	{
		"Installing MongoDB packages",
		"DEBIAN_FRONTEND=noninteractive apt-get install -y mongodb-org",
	},
	{
		"Starting MongoDB service",
		"systemctl daemon-reload && systemctl enable mongod && systemctl start mongod",
	},
}

type ubuntuPlan struct {
	runner ports.CommandRunner
	sink   ports.EventSink
	logger *logger.Logger
}

func newUbuntuPlan(runner ports.CommandRunner, sink ports.EventSink, log *logger.Logger) *ubuntuPlan {
	return &ubuntuPlan{runner: runner, sink: sink, logger: log}
}

func (p *ubuntuPlan) Platform() string { return "linux" }

func (p *ubuntuPlan) RequiresPrivilege() bool { return true }

func (p *ubuntuPlan) Steps() []planStep {
	steps := make([]planStep, 0, len(ubuntuSteps))
	for _, def := range ubuntuSteps {
		def := def
		steps = append(steps, planStep{
			description: def.description,
			run: func(ctx context.Context, info stepInfo, secret string) error {
				// The secret is piped to sudo's stdin and must never appear
				// in logs or progress events.
				full := fmt.Sprintf("echo '%s' | sudo -S bash -c '%s' 2>&1",
					escapeSingleQuotes(secret), def.command)
				return streamCommand(ctx, p.runner, p.sink, info, def.description, "bash", "-c", full)
			},
		})
	}
	return steps
}

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, `'`, `'\''`)
}
