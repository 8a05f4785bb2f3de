package fetcher

import (
	"math/rand/v2"
	"strings"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

var userAgents = map[string][]string{
	"chrome": {
		defaultUserAgent,
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	},
	"firefox": {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	},
	"safari": {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
	},
	"edge": {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
	},
}

// agentFamilies keeps "auto" selection deterministic in its candidate set.
var agentFamilies = []string{"chrome", "firefox", "safari", "edge"}

type UserAgentSelector struct {
	all []string
}

func NewUserAgentSelector() *UserAgentSelector {
	var all []string
	for _, family := range agentFamilies {
		all = append(all, userAgents[family]...)
	}
	return &UserAgentSelector{all: all}
}

// GetUserAgent picks a user agent for the browser family named by agent.
// "auto" or empty picks from every family; an unknown value is used verbatim.
func (uas *UserAgentSelector) GetUserAgent(agent string) string {
	agent = strings.TrimSpace(agent)
	family := strings.ToLower(agent)
	switch family {
	case "", "auto":
		return pick(uas.all)
	}
	if agents, ok := userAgents[family]; ok {
		return pick(agents)
	}
	return agent
}

func pick(agents []string) string {
	if len(agents) == 0 {
		return defaultUserAgent
	}
	return agents[rand.IntN(len(agents))]
}
