package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFamily(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"boards.greenhouse.io", "greenhouse"},
		{"job-boards.greenhouse.io", "greenhouse"},
		{"jobs.lever.co", "lever"},
		{"acme.wd5.myworkdayjobs.com", "workday"},
		{"jobs.ashbyhq.com", "ashby"},
		{"BOARDS.GREENHOUSE.IO", "greenhouse"},
		{"boards.greenhouse.io:443", "greenhouse"},
		{"boards.greenhouse.io.", "greenhouse"},
		{"greenhouse.io", "greenhouse"},
		{"acme.applytojob.com", "jazzhr"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got := ResolveFamily(tt.host)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestResolveFamily_Unknown(t *testing.T) {
	for _, host := range []string{
		"",
		"careers.example.com",
		// suffix must sit on a label boundary
		"notgreenhouse.io",
		"lever.co.evil.com",
	} {
		assert.Nil(t, ResolveFamily(host), host)
	}
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "jobs.lever.co", normalizeHost("  Jobs.Lever.CO:8443 "))
	assert.Equal(t, "jobs.lever.co", normalizeHost("jobs.lever.co."))
	assert.Equal(t, "", normalizeHost(""))
}
