package dialect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Dialect describes how to drive one vendor's CLI: what a prompt looks
// like, how to turn off paging, how to reach privileged mode and how
// to enter/leave configuration mode.
type Dialect struct {
	Name string

	// PromptPattern matches the trailing prompt line of any output.
	PromptPattern *regexp.Regexp

	// HostnamePatterns extract the device hostname from the prompt,
	// first match wins.
	HostnamePatterns []*regexp.Regexp

	// DisablePager commands are sent right after login so that long
	// output is not paged.
	DisablePager []string

	// EnableCommand enters privileged mode. Empty means the dialect
	// has no privileged mode.
	EnableCommand string
	// EnablePasswordPrompt matches the password prompt shown by
	// EnableCommand.
	EnablePasswordPrompt *regexp.Regexp
	// PrivilegedPrompt matches the prompt after privileged mode was
	// reached. Nil for dialects whose prompt does not change.
	PrivilegedPrompt *regexp.Regexp

	ConfigEnter string
	ConfigExit  string
}

var hostnameCiscoStyle = regexp.MustCompile(`([\w.-]+)(?:\(.*\))?[#>]\s*$`)
var hostnameBracketStyle = regexp.MustCompile(`[<\[]([\w.-]+)[>\]]\s*$`)

var passwordPrompt = regexp.MustCompile(`(?i)password`)
var privilegedHash = regexp.MustCompile(`#\s*$`)

var registry = map[string]*Dialect{}

func register(d *Dialect) {
	registry[d.Name] = d
}

func init() {
	ciscoLike := func(name string) *Dialect {
		return &Dialect{
			Name:                 name,
			PromptPattern:        regexp.MustCompile(`[>#]\s*$`),
			HostnamePatterns:     []*regexp.Regexp{hostnameCiscoStyle},
			DisablePager:         []string{"terminal length 0"},
			EnableCommand:        "enable",
			EnablePasswordPrompt: passwordPrompt,
			PrivilegedPrompt:     privilegedHash,
			ConfigEnter:          "configure terminal",
			ConfigExit:           "end",
		}
	}
	register(ciscoLike("cisco_ios"))
	register(ciscoLike("ruijie_os"))
	register(ciscoLike("zte_zxros"))

	comwareLike := func(name string, pager string) *Dialect {
		return &Dialect{
			Name:                 name,
			PromptPattern:        regexp.MustCompile(`[>\]]\s*$`),
			HostnamePatterns:     []*regexp.Regexp{hostnameBracketStyle, hostnameCiscoStyle},
			DisablePager:         []string{pager},
			EnableCommand:        "super",
			EnablePasswordPrompt: passwordPrompt,
			ConfigEnter:          "system-view",
			ConfigExit:           "return",
		}
	}
	register(comwareLike("hp_comware", "screen-length disable"))
	register(comwareLike("huawei", "screen-length 0 temporary"))

	register(&Dialect{
		Name:             "paloalto_panos",
		PromptPattern:    regexp.MustCompile(`>\s*$`),
		HostnamePatterns: []*regexp.Regexp{hostnameCiscoStyle},
		DisablePager:     []string{"set cli pager off"},
		ConfigEnter:      "configure",
		ConfigExit:       "exit",
	})

	register(&Dialect{
		Name:                 "linux",
		PromptPattern:        regexp.MustCompile(`[$#]\s*$`),
		HostnamePatterns:     []*regexp.Regexp{regexp.MustCompile(`@([\w.-]+)`), hostnameCiscoStyle},
		EnableCommand:        "sudo -s",
		EnablePasswordPrompt: passwordPrompt,
		PrivilegedPrompt:     privilegedHash,
	})
}

func Get(name string) (*Dialect, error) {
	d, ok := registry[strings.TrimSpace(strings.ToLower(name))]
	if !ok {
		return nil, fmt.Errorf("unknown device_type %q, must be one of: %s", name, strings.Join(Names(), ", "))
	}
	return d, nil
}

func Names() []string {
	ret := make([]string, 0, len(registry))
	for n := range registry {
		ret = append(ret, n)
	}
	sort.Strings(ret)
	return ret
}

// ParseHostname extracts the device hostname from a prompt line.
// Returns "unknown" if no pattern matches.
func (d *Dialect) ParseHostname(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	for _, p := range d.HostnamePatterns {
		if m := p.FindStringSubmatch(prompt); m != nil {
			return m[1]
		}
	}
	return "unknown"
}
