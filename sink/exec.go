package sink

import (
	"context"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ExecSinkOptions 直接在目标库上执行语句的配置
type ExecSinkOptions struct {
	// Driver 目标库驱动：mysql, sqlite, postgres
	Driver string `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite postgres"`
	// DSN 目标库连接串，sqlite 为文件路径
	DSN string `cfg:"dsn" validate:"required"`
}

// ExecSink 逐条执行语句，注释和空行被忽略
// mysql 和 sqlite 通过 GORM 执行，postgres 使用单个 pgx 连接
// 语句执行后即生效，Abort 不会回滚
type ExecSink struct {
	ctx      context.Context
	db       *gorm.DB
	conn     *pgx.Conn
	driver   string
	executed int
	closed   bool
}

// ValidateDSN 检查连接串格式，mysql 连接串必须指定数据库
func ValidateDSN(driver string, dsn string) error {
	if dsn == "" {
		return errors.New("dsn is required")
	}

	switch driver {
	case "mysql":
		cfg, err := mysqldriver.ParseDSN(dsn)
		if err != nil {
			return errors.Wrap(err, "invalid mysql dsn")
		}
		if cfg.DBName == "" {
			return errors.New("mysql dsn must specify a database")
		}
	case "postgres":
		if _, err := pgx.ParseConfig(dsn); err != nil {
			return errors.Wrap(err, "invalid postgres dsn")
		}
	case "sqlite":
	default:
		return errors.Errorf("unsupported driver: %s", driver)
	}
	return nil
}

func NewExecSinkWithOptions(ctx context.Context, options *ExecSinkOptions) (*ExecSink, error) {
	if options == nil {
		return nil, errors.New("exec sink options is required")
	}
	if err := ValidateDSN(options.Driver, options.DSN); err != nil {
		return nil, err
	}

	if options.Driver == "postgres" {
		conn, err := pgx.Connect(ctx, options.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "connect postgres target")
		}
		return &ExecSink{ctx: ctx, conn: conn, driver: options.Driver}, nil
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var dialector gorm.Dialector
	switch options.Driver {
	case "mysql":
		dialector = mysql.Open(options.DSN)
	case "sqlite":
		dialector = sqlite.Open(options.DSN)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s target", options.Driver)
	}

	return &ExecSink{
		ctx:    ctx,
		db:     db.WithContext(ctx),
		driver: options.Driver,
	}, nil
}

func (s *ExecSink) Comment(text string) error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *ExecSink) Blank() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *ExecSink) Statement(stmt string) error {
	if s.closed {
		return ErrClosed
	}
	var err error
	if s.conn != nil {
		_, err = s.conn.Exec(s.ctx, stmt)
	} else {
		err = s.db.Exec(stmt).Error
	}
	if err != nil {
		return errors.Wrapf(err, "exec on %s target", s.driver)
	}
	s.executed++
	return nil
}

// Executed 已成功执行的语句数
func (s *ExecSink) Executed() int {
	return s.executed
}

func (s *ExecSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.conn != nil {
		return s.conn.Close(context.WithoutCancel(s.ctx))
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "get sql.DB failed")
	}
	return sqlDB.Close()
}

func (s *ExecSink) Abort() error {
	return s.Close()
}
