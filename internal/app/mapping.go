package app

import (
	"time"

	"healthwatch/internal/config"
	"healthwatch/internal/feed"
)

func toFilter(fc config.FilterConfig) feed.Filter {
	return feed.Filter{
		Regions:    fc.Regions,
		Categories: fc.Categories,
		Statuses:   fc.Statuses,
		Tags:       fc.Tags,
	}
}

func time24h(days int) time.Duration {
	if days <= 0 {
		days = config.DefaultLookbackDays
	}
	return time.Duration(days) * 24 * time.Hour
}
