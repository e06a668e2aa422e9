package config

import "time"

// WatchDebounce returns the watch debounce as a duration.
func (c *Config) WatchDebounce() time.Duration {
	if c.Watch.Debounce == "" {
		return 200 * time.Millisecond
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 200 * time.Millisecond
	}
	return d
}

// ServeAddr returns the HTTP listen address.
func (c *Config) ServeAddr() string {
	if c.Serve.Addr == "" {
		return DefaultServeAddr
	}
	return c.Serve.Addr
}

// ChartTitle returns the Gantt chart title.
func (c *Config) ChartTitle() string {
	if c.Chart.Title == "" {
		return DefaultChartTitle
	}
	return c.Chart.Title
}

// ChartOutput returns the chart output path.
func (c *Config) ChartOutput() string {
	if c.Chart.Output == "" {
		return DefaultChartOutput
	}
	return c.Chart.Output
}
