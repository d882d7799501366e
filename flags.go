package main

import "github.com/urfave/cli/v2"

var FlagLogLevel = &cli.StringFlag{
	Name:     "log-level",
	EnvVars:  []string{"LOG_LEVEL"},
	Value:    "info",
	Required: false,
}

var FlagLogWriter = &cli.StringFlag{
	Name:     "log-writer",
	Usage:    "one of: [console, json]",
	EnvVars:  []string{"LOG_WRITER"},
	Value:    "console",
	Required: false,
}

var FlagConfig = &cli.StringFlag{
	Name:     "config",
	Usage:    "structured config file (.toml, .json, .yaml)",
	EnvVars:  []string{"NETWORK_ASSISTANT_CONFIG"},
	Value:    "conf/app.toml",
	Required: false,
}

var FlagEnvFile = &cli.StringFlag{
	Name:     "env-file",
	Usage:    "dotenv file loaded before flags are read, if present",
	Value:    ".env",
	Required: false,
}

var FlagInterface = &cli.StringFlag{
	Name:     "interface",
	Usage:    "network interface to report, overrides [client] interface",
	EnvVars:  []string{"NETWORK_ASSISTANT_INTERFACE"},
	Required: false,
}

var FlagMQTTClientID = &cli.StringFlag{
	Name:     "mqtt-client-id",
	Usage:    "overrides [mqtt] client_id",
	EnvVars:  []string{"MQTT_CLIENT_ID"},
	Required: false,
}

var FlagMQTTUsername = &cli.StringFlag{
	Name:     "mqtt-username",
	Usage:    "overrides [mqtt] username",
	EnvVars:  []string{"MQTT_USERNAME"},
	Required: false,
}

var FlagMQTTPassword = &cli.StringFlag{
	Name:     "mqtt-password",
	Usage:    "overrides [mqtt] password",
	EnvVars:  []string{"MQTT_PASSWORD"},
	Required: false,
}
