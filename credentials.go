package ibmq

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by AccountFromEnv and DialAccount
const (
	EnvToken   = "QE_TOKEN"
	EnvURL     = "QE_URL"
	EnvHub     = "QE_HUB"
	EnvGroup   = "QE_GROUP"
	EnvProject = "QE_PROJECT"
	// EnvQiskitrc overrides the account file location
	EnvQiskitrc = "QISKITRC"
)

// DefaultAccountName names the account used when none is specified
const DefaultAccountName = "default"

// Account is a stored set of QX Platform credentials
type Account struct {
	Token   string `yaml:"token"`
	URL     string `yaml:"url,omitempty"`
	Hub     string `yaml:"hub,omitempty"`
	Group   string `yaml:"group,omitempty"`
	Project string `yaml:"project,omitempty"`
}

// qiskitrc is the on-disk account store
type qiskitrc struct {
	Accounts map[string]Account `yaml:"accounts"`
}

// QiskitrcPath returns the account file location, honoring the QISKITRC
// environment variable.
func QiskitrcPath() (string, error) {
	if p := os.Getenv(EnvQiskitrc); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".qiskit", "qiskitrc.yaml"), nil
}

func loadRC() (*qiskitrc, string, error) {
	path, err := QiskitrcPath()
	if err != nil {
		return nil, "", err
	}

	rc := &qiskitrc{Accounts: make(map[string]Account)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return rc, path, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, rc); err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", path, err)
	}
	if rc.Accounts == nil {
		rc.Accounts = make(map[string]Account)
	}
	return rc, path, nil
}

func (rc *qiskitrc) save(path string) error {
	data, err := yaml.Marshal(rc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	// the file holds credentials, keep it private
	return os.WriteFile(path, data, 0o600)
}

// SaveAccount stores an account under the given name, overwriting any
// previous entry.
func SaveAccount(name string, account Account) error {
	if account.Token == "" {
		return newCredentialsError("refusing to store an account without a token", nil)
	}
	if name == "" {
		name = DefaultAccountName
	}

	rc, path, err := loadRC()
	if err != nil {
		return err
	}
	rc.Accounts[name] = account
	return rc.save(path)
}

// LoadAccount retrieves a stored account by name
func LoadAccount(name string) (Account, error) {
	if name == "" {
		name = DefaultAccountName
	}

	rc, _, err := loadRC()
	if err != nil {
		return Account{}, err
	}
	account, ok := rc.Accounts[name]
	if !ok {
		return Account{}, newCredentialsError(fmt.Sprintf("no account named %q stored", name), nil)
	}
	return account, nil
}

// Accounts returns all stored accounts keyed by name
func Accounts() (map[string]Account, error) {
	rc, _, err := loadRC()
	if err != nil {
		return nil, err
	}
	return rc.Accounts, nil
}

// DeleteAccount removes a stored account by name
func DeleteAccount(name string) error {
	if name == "" {
		name = DefaultAccountName
	}

	rc, path, err := loadRC()
	if err != nil {
		return err
	}
	if _, ok := rc.Accounts[name]; !ok {
		return newCredentialsError(fmt.Sprintf("no account named %q stored", name), nil)
	}
	delete(rc.Accounts, name)
	return rc.save(path)
}

// AccountFromEnv assembles an account from the QE_* environment variables.
// The boolean reports whether a token was present.
func AccountFromEnv() (Account, bool) {
	account := Account{
		Token:   os.Getenv(EnvToken),
		URL:     os.Getenv(EnvURL),
		Hub:     os.Getenv(EnvHub),
		Group:   os.Getenv(EnvGroup),
		Project: os.Getenv(EnvProject),
	}
	return account, account.Token != ""
}

// ResolveAccount returns the account to use. Environment variables win
// over the stored account of the given name.
func ResolveAccount(name string) (Account, error) {
	if account, ok := AccountFromEnv(); ok {
		return account, nil
	}
	return LoadAccount(name)
}

// DialOptions returns the dial options expressing this account
func (a Account) DialOptions() []DialOption {
	opts := []DialOption{WithApiToken(a.Token)}
	if a.URL != "" {
		opts = append(opts, WithApiUrl(a.URL))
	}
	return opts
}

// ClientOptions returns the client options expressing this account
func (a Account) ClientOptions() []ClientOption {
	if a.Hub == "" || a.Group == "" || a.Project == "" {
		return nil
	}
	return []ClientOption{WithHubInfo(a.Hub, a.Group, a.Project)}
}

// DialAccount dials the platform with a stored or environment provided
// account and wraps the connection in a client carrying its hub info.
func DialAccount(name string, options ...DialOption) (*Client, error) {
	account, err := ResolveAccount(name)
	if err != nil {
		return nil, err
	}

	dialOpts := append(account.DialOptions(), options...)
	conn, err := Dial(dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(conn, account.ClientOptions()...), nil
}
