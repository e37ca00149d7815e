package cmd

import (
	"net"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

type Config struct {
	IndexURL       string   `yaml:"index_url" config:"index_url" default:"https://pypi.python.org/simple/"`
	ExtraIndexURLs []string `yaml:"extra_index_urls" config:"extra_index_urls"`
	FindLinks      []string `yaml:"find_links" config:"find_links"`
	NoIndex        bool     `yaml:"no_index" config:"no_index"`

	UseMirrors     bool     `yaml:"use_mirrors" config:"use_mirrors"`
	Mirrors        []string `yaml:"mirrors" config:"mirrors"`
	MirrorHostname string   `yaml:"mirror_hostname" config:"mirror_hostname" default:"last.pypi.python.org"`

	// Number of pages fetched at the same time
	Workers int           `yaml:"workers" default:"10"`
	Timeout time.Duration `yaml:"timeout"`
	// Rounds of homepage and download links to follow
	FollowRel int    `yaml:"follow_rel" config:"follow_rel"`
	LogLevel  string `yaml:"loglevel" default:"info"`

	Cache  CacheConfig  `yaml:"cache" config:"cache"`
	Tracer TracerConfig `yaml:"tracer" config:"tracer"`
}

type CacheConfig struct {
	// Type is one of memory, badger or redis
	Type string `yaml:"type" default:"memory"`
	// Badger database directory, in-memory when empty
	Dir   string `yaml:"dir"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		DB       int    `yaml:"db"`
		Password string `yaml:"password"`

		// TTL bounds how long a session's pages outlive a crash
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"redis" config:"redis"`
}

type TracerConfig struct {
	// Type is jaeger or zipkin, tracing is off when empty
	Type     string `yaml:"type"`
	Endpoint string `yaml:"endpoint"`
}

func (c *Config) Bind(flag *flag.FlagSet) {
	flag.StringVarP(&c.IndexURL, "index-url", "i", c.IndexURL, "Base URL of the package index")
	flag.StringArrayVar(&c.ExtraIndexURLs, "extra-index-url", c.ExtraIndexURLs, "Extra package index URLs to search")
	flag.StringArrayVarP(&c.FindLinks, "find-links", "f", c.FindLinks,
		"A URL or path to an html page or directory to search for links")
	flag.BoolVar(&c.NoIndex, "no-index", c.NoIndex, "Ignore package indexes, only use find-links")
	flag.BoolVar(&c.UseMirrors, "use-mirrors", c.UseMirrors, "Search the index mirrors")
	flag.StringArrayVar(&c.Mirrors, "mirrors", c.Mirrors, "Mirror hosts to use instead of DNS discovery")
	flag.IntVarP(&c.Workers, "workers", "w", c.Workers, "Number of pages fetched at once")
	flag.DurationVar(&c.Timeout, "timeout", c.Timeout, "Request timeout")
	flag.IntVar(&c.FollowRel, "follow-rel", c.FollowRel, "Rounds of homepage and download links to follow")
	flag.StringVar(&c.Cache.Type, "cache", c.Cache.Type, "Page cache backend (memory, badger, redis)")
}

// IndexURLs returns the main index followed by the extra indexes.
func (c *Config) IndexURLs() []string {
	urls := make([]string, 0, len(c.ExtraIndexURLs)+1)
	if c.IndexURL != "" {
		urls = append(urls, c.IndexURL)
	}
	return append(urls, c.ExtraIndexURLs...)
}

// GetLevel parses the log level and falls back to info.
func (c *Config) GetLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func (c *Config) RedisOpts() *redis.Options {
	return &redis.Options{
		Addr: net.JoinHostPort(
			c.Cache.Redis.Host,
			strconv.FormatInt(int64(c.Cache.Redis.Port), 10),
		),
		DB:       c.Cache.Redis.DB,
		Password: c.Cache.Redis.Password,
	}
}
