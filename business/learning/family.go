package learning

import (
	"net"
	"strings"
)

// Known applicant-tracking platforms by domain suffix.
var familySuffixes = []struct {
	suffix string
	family string
}{
	{"greenhouse.io", "greenhouse"},
	{"lever.co", "lever"},
	{"myworkdayjobs.com", "workday"},
	{"myworkdaysite.com", "workday"},
	{"workday.com", "workday"},
	{"ashbyhq.com", "ashby"},
	{"smartrecruiters.com", "smartrecruiters"},
	{"icims.com", "icims"},
	{"taleo.net", "taleo"},
	{"bamboohr.com", "bamboohr"},
	{"jobvite.com", "jobvite"},
	{"workable.com", "workable"},
	{"recruitee.com", "recruitee"},
	{"successfactors.com", "successfactors"},
	{"successfactors.eu", "successfactors"},
	{"breezy.hr", "breezy"},
	{"applytojob.com", "jazzhr"},
	{"teamtailor.com", "teamtailor"},
}

// ResolveFamily maps a host to its form family, or nil when unknown.
func ResolveFamily(host string) *string {
	h := normalizeHost(host)
	if h == "" {
		return nil
	}

	for _, entry := range familySuffixes {
		if h == entry.suffix || strings.HasSuffix(h, "."+entry.suffix) {
			fam := entry.family
			return &fam
		}
	}

	return nil
}

// normalizeHost lower-cases a host and drops any port and trailing dot.
func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if hostOnly, _, err := net.SplitHostPort(h); err == nil {
		h = hostOnly
	}
	return strings.TrimSuffix(h, ".")
}
