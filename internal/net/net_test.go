package net

import "testing"

func TestIsPrivateNetwork(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want bool
	}{
		{"127.0.0.1:8827", true},
		{"localhost:8827", true},
		{"[::1]:8827", true},
		{"192.168.1.20:80", true},
		{"10.1.2.3", true},
		{"172.20.0.1:9000", true},
		{"172.32.0.1:9000", false},
		{"[fd00::1]:8827", true},
		{"http://192.168.0.5:8827/api", true},
		{"8.8.8.8:53", false},
		{"0.0.0.0:8827", false},
		{":8827", false},
		{"[::]:8827", false},
	}

	for _, tt := range tests {
		if got := IsPrivateNetwork(tt.host); got != tt.want {
			t.Errorf("IsPrivateNetwork(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}
