package config

import "github.com/spf13/viper"

// PostingConfig holds the posting-engine settings that are deployment
// configuration rather than scheme data.
type PostingConfig struct {
	// CashGLAccount is the fixed sentinel GL account every CASH voucher's
	// cash leg posts against.
	CashGLAccount string
}

// GetPostingConfig returns posting configuration with defaults.
func GetPostingConfig() *PostingConfig {
	viper.SetDefault("posting.cash_gl_account", "100001")

	return &PostingConfig{
		CashGLAccount: viper.GetString("posting.cash_gl_account"),
	}
}
