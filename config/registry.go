package config

import (
	"fmt"

	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/protoc/local"
	"github.com/derektruong/cloudxfer/protoc/s3"
	"github.com/derektruong/cloudxfer/protoc/webdav"
	"github.com/mitchellh/mapstructure"
)

type localOptions struct {
	Root     string `mapstructure:"root" validate:"required"`
	Chunking bool   `mapstructure:"chunking"`
}

// BuildRegistry decodes and validates the options of every account and
// registers its client. Account names are lowercase, as viper folds keys.
func BuildRegistry(cfg *Config) (registry *protoc.Registry, err error) {
	registry = protoc.NewRegistry()
	for name, account := range cfg.Accounts {
		var client protoc.Client
		if client, err = buildClient(account); err != nil {
			return nil, fmt.Errorf("accounts.%s: %w", name, err)
		}
		registry.RegisterClient(name, client)
	}
	return
}

func buildClient(account AccountConfig) (client protoc.Client, err error) {
	switch account.Type {
	case "webdav":
		c := &webdav.Client{}
		if err = decodeOptions(account.Options, c); err != nil {
			return
		}
		client = c
	case "s3":
		c := &s3.Client{UsePathStyle: true}
		if err = decodeOptions(account.Options, c); err != nil {
			return
		}
		client = *c
	case "local":
		var opts localOptions
		if err = decodeOptions(account.Options, &opts); err != nil {
			return
		}
		client = local.NewIO(opts.Root, opts.Chunking)
	default:
		err = fmt.Errorf("unknown account type %q", account.Type)
	}
	return
}

// decodeOptions decodes raw into target, rejecting unknown keys, and
// validates the result.
func decodeOptions(raw map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           target,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err = decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode options: %w", err)
	}
	if err = validate.Struct(target); err != nil {
		return formatValidationError(err)
	}
	return nil
}
