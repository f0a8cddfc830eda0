// Package config loads the harness configuration: the cluster under
// verification, poll budgets and transport settings.
package config

import (
    "fmt"
    "os"
    "time"

    "gopkg.in/yaml.v3"

    "github.com/amirimatin/go-converge/pkg/cluster"
)

// Duration wraps time.Duration with YAML string parsing ("1s", "250ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
    var s string
    if err := value.Decode(&s); err != nil {
        return err
    }
    v, err := time.ParseDuration(s)
    if err != nil {
        return fmt.Errorf("config: bad duration %q: %w", s, err)
    }
    *d = Duration(v)
    return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// NodeConfig declares one cluster member and its endpoints. Unset admin and
// queue endpoints fall back to the search endpoint.
type NodeConfig struct {
    ID     string `yaml:"id"`
    Search string `yaml:"search"`
    Admin  string `yaml:"admin"`
    Queue  string `yaml:"queue"`
}

// PollConfig bounds every wait: attempts × delay is the hard ceiling.
type PollConfig struct {
    Attempts int      `yaml:"attempts"`
    Delay    Duration `yaml:"delay"`
}

// DiscoveryConfig selects how the cluster handle is built: "static" reads the
// nodes list above, "memberlist" joins the gossip ring as an observer.
type DiscoveryConfig struct {
    Kind  string   `yaml:"kind"`
    Bind  string   `yaml:"bind"`
    Seeds []string `yaml:"seeds"`
}

// TLSConfig mirrors tlsconfig.Options for YAML.
type TLSConfig struct {
    Enable             bool   `yaml:"enable"`
    CAFile             string `yaml:"ca_file"`
    CertFile           string `yaml:"cert_file"`
    KeyFile            string `yaml:"key_file"`
    ServerName         string `yaml:"server_name"`
    InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Config is the root harness configuration.
type Config struct {
    Nodes      []NodeConfig    `yaml:"nodes"`
    Discovery  DiscoveryConfig `yaml:"discovery"`
    Poll       PollConfig      `yaml:"poll"`
    AdminProto string          `yaml:"admin_proto"` // "http" (default) or "grpc"
    Timeout    Duration        `yaml:"timeout"`     // per-request timeout
    TLS        TLSConfig       `yaml:"tls"`
}

// Defaults used when the corresponding field is unset.
const (
    DefaultAttempts = 20
    DefaultDelay    = time.Second
)

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
    b, err := os.ReadFile(path)
    if err != nil {
        return Config{}, err
    }
    return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (Config, error) {
    var c Config
    if err := yaml.Unmarshal(b, &c); err != nil {
        return Config{}, fmt.Errorf("config: %w", err)
    }
    c.applyDefaults()
    if err := c.Validate(); err != nil {
        return Config{}, err
    }
    return c, nil
}

func (c *Config) applyDefaults() {
    if c.Poll.Attempts == 0 { c.Poll.Attempts = DefaultAttempts }
    if c.Poll.Delay == 0 { c.Poll.Delay = Duration(DefaultDelay) }
    if c.AdminProto == "" { c.AdminProto = "http" }
    if c.Discovery.Kind == "" { c.Discovery.Kind = "static" }
    for i := range c.Nodes {
        if c.Nodes[i].Admin == "" { c.Nodes[i].Admin = c.Nodes[i].Search }
        if c.Nodes[i].Queue == "" { c.Nodes[i].Queue = c.Nodes[i].Admin }
    }
}

// Validate rejects configurations the harness cannot act on.
func (c Config) Validate() error {
    switch c.Discovery.Kind {
    case "static":
        if len(c.Nodes) == 0 {
            return fmt.Errorf("config: static discovery requires a nodes list")
        }
    case "memberlist":
        if len(c.Discovery.Seeds) == 0 {
            return fmt.Errorf("config: memberlist discovery requires seeds")
        }
    default:
        return fmt.Errorf("config: unknown discovery kind %q", c.Discovery.Kind)
    }
    if c.AdminProto != "http" && c.AdminProto != "grpc" {
        return fmt.Errorf("config: unknown admin_proto %q", c.AdminProto)
    }
    for _, n := range c.Nodes {
        if n.ID == "" || n.Search == "" {
            return fmt.Errorf("config: every node needs id and search endpoint")
        }
    }
    return nil
}

// ClusterNodes converts the static nodes list into cluster nodes.
func (c Config) ClusterNodes() []cluster.Node {
    out := make([]cluster.Node, 0, len(c.Nodes))
    for _, n := range c.Nodes {
        out = append(out, cluster.Node{
            ID:        cluster.NodeID(n.ID),
            Endpoints: cluster.Endpoints{Search: n.Search, Admin: n.Admin, Queue: n.Queue},
        })
    }
    return out
}
