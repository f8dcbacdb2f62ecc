package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageTitle(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"simple", "<html><head><title>Example Domain</title></head><body></body></html>", "Example Domain"},
		{"whitespace collapsed", "<html><head><title>\n  Two\n  Words </title></head></html>", "Two Words"},
		{"first title wins", "<head><title>One</title><title>Two</title></head>", "One"},
		{"no title", "<html><body><h1>Heading</h1></body></html>", ""},
		{"plain text", "hello", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PageTitle(tt.body))
		})
	}
}
