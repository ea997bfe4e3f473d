package stripe

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"stabledesk/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestDisabledClient(t *testing.T) {
	c := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), config.StripeConfig{})
	assert.False(t, c.IsEnabled())

	_, err := c.CreateCustomer(context.Background(), CreateCustomerParams{Email: "owner@example.com"})
	assert.ErrorIs(t, err, ErrBillingDisabled)
	assert.ErrorIs(t, c.DeleteCustomer(context.Background(), "cus_123"), ErrBillingDisabled)
}

func TestEnabledClient(t *testing.T) {
	c := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), config.StripeConfig{SecretKey: "sk_test_123"})
	assert.True(t, c.IsEnabled())
}

func TestRequiresCustomer(t *testing.T) {
	tests := []struct {
		tier string
		want bool
	}{
		{"basic", false},
		{"", false},
		{"premium", true},
		{"enterprise", true},
	}
	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresCustomer(tt.tier))
		})
	}
}
