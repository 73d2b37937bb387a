package config

import (
	"net"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

// DSNValue returns the configured DSN, or one assembled from the parts.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	dc := mysqlDriver.NewConfig()
	dc.User = or(c.User, defaultDBUser)
	dc.Passwd = strings.TrimSpace(c.Password)
	dc.Net = "tcp"
	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}
	dc.Addr = net.JoinHostPort(or(c.Host, defaultDBHost), strconv.Itoa(port))
	dc.DBName = or(c.Name, defaultDBName)
	dc.ParseTime = c.ParseTime
	if loc, err := time.LoadLocation(or(c.Loc, defaultDBLoc)); err == nil {
		dc.Loc = loc
	}

	dc.Params = map[string]string{}
	for key, value := range c.Params {
		if k, v := strings.TrimSpace(key), strings.TrimSpace(value); k != "" && v != "" {
			dc.Params[k] = v
		}
	}
	if _, ok := dc.Params["charset"]; !ok {
		dc.Params["charset"] = or(c.Charset, defaultDBCharset)
	}
	return dc.FormatDSN()
}

// URLValue returns the configured redis URL, or one assembled from the parts.
// Parts are expected to be normalized already.
func (c RedisRuntimeConfig) URLValue() string {
	if u := normalizeRedisRawURL(c.URL); u != "" {
		return u
	}

	port := c.Port
	if port == 0 {
		port = defaultRedisPort
	}
	db := c.DB
	if db < 0 {
		db = defaultRedisDB
	}
	u := &neturl.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(or(c.Host, defaultRedisHost), strconv.Itoa(port)),
		Path:   "/" + strconv.Itoa(db),
	}
	if c.Scheme == "rediss" || (c.Scheme == "" && c.TLS) {
		u.Scheme = "rediss"
	}

	switch {
	case c.Username != "" && c.Password != "":
		u.User = neturl.UserPassword(c.Username, c.Password)
	case c.Username != "":
		u.User = neturl.User(c.Username)
	case c.Password != "":
		u.User = neturl.UserPassword("", c.Password)
	}

	query := neturl.Values{}
	for key, value := range c.Params {
		if k, v := strings.TrimSpace(key), strings.TrimSpace(value); k != "" && v != "" {
			query.Set(k, v)
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func or(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
