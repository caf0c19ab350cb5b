package backend

import (
	"fmt"
	"time"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Every      time.Duration
	Burst      int
	MaxRetries int
}

func (c Config) String() string {
	return fmt.Sprintf("\n BaseURL: %s\n Timeout: %s\n Every: %s\n Burst: %d\n MaxRetries: %d",
		c.BaseURL,
		c.Timeout,
		c.Every,
		c.Burst,
		c.MaxRetries,
	)
}
