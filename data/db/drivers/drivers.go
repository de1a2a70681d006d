// Package drivers 通过空导入注册运行时支持的数据库驱动，并按 DBConfig 组装 DSN。
//
// 应用只需导入本包即可使用 sqlite、postgres（pgx）与 mysql。
package drivers

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	core "matrixsql/data/db"
	"matrixsql/data/db/basic"
	"matrixsql/errors"
)

// DriverName 将配置中的方言名映射为 database/sql 注册的驱动名
func DriverName(config core.DBConfig) (string, error) {
	switch strings.ToLower(strings.TrimSpace(config.Driver)) {
	case "", "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", errors.NewErrorf(errors.ErrCodeConfiguration, "unsupported database driver %q", config.Driver)
	}
}

// DSN 按驱动组装连接串；config.DSN 非空时原样返回
func DSN(config core.DBConfig) (string, error) {
	if config.DSN != "" {
		return config.DSN, nil
	}

	driver, err := DriverName(config)
	if err != nil {
		return "", err
	}
	switch driver {
	case "sqlite":
		if config.Database == "" {
			return ":memory:", nil
		}
		return config.Database, nil
	case "pgx":
		return postgresDSN(config)
	default:
		return mysqlDSN(config)
	}
}

func mysqlDSN(config core.DBConfig) (string, error) {
	c := mysql.NewConfig()
	c.User = config.Username
	c.Passwd = config.Password
	c.Net = "tcp"
	c.Addr = hostPort(config, 3306)
	c.DBName = config.Database
	c.ParseTime = config.ParseTime
	if config.Charset != "" {
		c.Params = map[string]string{"charset": config.Charset}
	}
	if config.Location != "" {
		loc, err := time.LoadLocation(config.Location)
		if err != nil {
			return "", errors.WrapError(err, errors.ErrCodeConfiguration, "invalid database location")
		}
		c.Loc = loc
	}
	return c.FormatDSN(), nil
}

func postgresDSN(config core.DBConfig) (string, error) {
	u := url.URL{
		Scheme: "postgres",
		Host:   hostPort(config, 5432),
		Path:   "/" + config.Database,
	}
	if config.Username != "" {
		u.User = url.UserPassword(config.Username, config.Password)
	}
	q := url.Values{}
	if config.SSLMode != "" {
		q.Set("sslmode", config.SSLMode)
	}
	if config.Location != "" {
		q.Set("timezone", config.Location)
	}
	u.RawQuery = q.Encode()

	dsn := u.String()
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", errors.WrapError(err, errors.ErrCodeConfiguration, "invalid postgres configuration")
	}
	return dsn, nil
}

func hostPort(config core.DBConfig, defaultPort int) string {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	port := config.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Open 组装 DSN 并打开数据库
func Open(config core.DBConfig) (*basic.DB, error) {
	driver, err := DriverName(config)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(config)
	if err != nil {
		return nil, err
	}
	db, err := basic.Open(driver, dsn, config)
	if err != nil {
		return nil, fmt.Errorf("drivers: %w", err)
	}
	return db, nil
}
