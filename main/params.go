// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ava-labs/sequencervm/sequencer"
)

const (
	versionKey         = "version"
	configFileKey      = "config-file"
	dbTypeKey          = "db-type"
	dbPathKey          = "db-path"
	tezosNodeURIKey    = "tezos-node-uri"
	rollupNodeURIKey   = "rollup-node-uri"
	httpHostKey        = "http-host"
	httpPortKey        = "http-port"
	queueSizeKey       = "queue-size"
	headerQueueSizeKey = "header-queue-size"
	injectionTimeout   = "injection-timeout"
	levelMarkersKey    = "level-markers"
	logLevelKey        = "log-level"

	envPrefix = "sequencer"

	leveldbType = "leveldb"
	memdbType   = "memdb"
)

var errUnknownDBType = errors.New("unknown database type")

// config is the resolved node configuration.
type config struct {
	DBType           string
	DBPath           string
	TezosNodeURI     string
	RollupNodeURI    string
	HTTPHost         string
	HTTPPort         uint16
	InjectionTimeout time.Duration
	LogLevel         string
	Node             sequencer.Config
}

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("sequencer", flag.ContinueOnError)

	fs.Bool(versionKey, false, "If true, prints version and quit")
	fs.String(configFileKey, "", "Path to a config file, flags take precedence")
	fs.String(dbTypeKey, leveldbType, "Database backend, one of leveldb or memdb")
	fs.String(dbPathKey, "/tmp/sequencer-storage", "Directory of the leveldb database")
	fs.String(tezosNodeURIKey, "http://localhost:18731", "Tezos node to follow heads from")
	fs.String(rollupNodeURIKey, "http://localhost:8932", "Rollup node batches are injected into")
	fs.String(httpHostKey, "127.0.0.1", "Address of the HTTP server")
	fs.Uint(httpPortKey, 8080, "Port of the HTTP server")
	fs.Int(queueSizeKey, sequencer.DefaultQueueSize, "Capacity of the sequencer queue")
	fs.Int(headerQueueSizeKey, sequencer.DefaultHeaderQueueSize, "Capacity of the header queue")
	fs.Duration(injectionTimeout, 10*time.Second, "Timeout of one batch injection")
	fs.Bool(levelMarkersKey, false, "If true, feeds end and start of level messages to the kernel")
	fs.String(logLevelKey, "info", "Log level, one of crit, error, warn, info or debug")

	return fs
}

// getViper returns the viper environment for the sequencer binary
func getViper(args []string) (*viper.Viper, error) {
	v := viper.New()

	fs := pflag.NewFlagSet("sequencer", pflag.ContinueOnError)
	fs.AddGoFlagSet(buildFlagSet())
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString(configFileKey); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

func buildConfig(v *viper.Viper) (*config, error) {
	c := &config{
		DBType:           v.GetString(dbTypeKey),
		DBPath:           v.GetString(dbPathKey),
		TezosNodeURI:     v.GetString(tezosNodeURIKey),
		RollupNodeURI:    v.GetString(rollupNodeURIKey),
		HTTPHost:         v.GetString(httpHostKey),
		HTTPPort:         uint16(v.GetUint(httpPortKey)),
		InjectionTimeout: v.GetDuration(injectionTimeout),
		LogLevel:         v.GetString(logLevelKey),
		Node: sequencer.Config{
			QueueSize:       v.GetInt(queueSizeKey),
			HeaderQueueSize: v.GetInt(headerQueueSizeKey),
			LevelMarkers:    v.GetBool(levelMarkersKey),
		},
	}
	switch c.DBType {
	case leveldbType, memdbType:
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDBType, c.DBType)
	}
	return c, nil
}
