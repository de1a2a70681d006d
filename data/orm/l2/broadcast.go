package l2

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"matrixsql/errors"
	"matrixsql/logging"
)

// DefaultEvictSubject 失效广播的默认主题
const DefaultEvictSubject = "matrixsql.l2.evict"

// broker 广播所需的最小发布订阅能力
type broker interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handle func(data []byte)) (unsubscribe func() error, err error)
}

type natsBroker struct {
	conn *nats.Conn
}

func (b natsBroker) Publish(subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

func (b natsBroker) Subscribe(subject string, handle func([]byte)) (func() error, error) {
	sub, err := b.conn.Subscribe(subject, func(m *nats.Msg) { handle(m.Data) })
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

// BroadcastConfig 失效广播配置
type BroadcastConfig struct {
	// Conn 非空时直接复用，否则按 URL 建立连接并在 Close 时关闭
	Conn    *nats.Conn
	URL     string
	Subject string
	Logger  logging.Logger
}

// evictMessage 广播载荷，Prefix 为真时 Key 按前缀匹配
type evictMessage struct {
	Origin string `json:"origin"`
	Key    string `json:"key"`
	Prefix bool   `json:"prefix,omitempty"`
}

// BroadcastRegion 在本地区域之上通过 NATS 广播失效。
//
// Get 与 Put 只访问本地区域；Evict 与 EvictPrefix 先作用于本地，
// 再通知其他进程删除各自的本地副本。自身发出的消息会被忽略。
type BroadcastRegion struct {
	local   Region
	broker  broker
	subject string
	origin  string
	logger  logging.Logger

	conn *nats.Conn // 自建连接

	mu          sync.Mutex
	unsubscribe func() error
}

// NewBroadcastRegion 为 local 建立失效广播
func NewBroadcastRegion(local Region, cfg BroadcastConfig) (*BroadcastRegion, error) {
	if local == nil {
		return nil, errors.NewError(errors.ErrCodeConfiguration, "l2: broadcast region requires a local region")
	}
	conn, own := cfg.Conn, false
	if conn == nil {
		if cfg.URL == "" {
			return nil, errors.NewError(errors.ErrCodeConfiguration, "l2: broadcast region requires Conn or URL")
		}
		c, err := nats.Connect(cfg.URL)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeCache, "l2: nats connect")
		}
		conn, own = c, true
	}
	r, err := newBroadcastRegion(local, natsBroker{conn: conn}, cfg)
	if err != nil {
		if own {
			conn.Close()
		}
		return nil, err
	}
	if own {
		r.conn = conn
	}
	return r, nil
}

func newBroadcastRegion(local Region, b broker, cfg BroadcastConfig) (*BroadcastRegion, error) {
	if cfg.Subject == "" {
		cfg.Subject = DefaultEvictSubject
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "l2.broadcast"))
	}
	r := &BroadcastRegion{
		local:   local,
		broker:  b,
		subject: cfg.Subject,
		origin:  uuid.NewString(),
		logger:  cfg.Logger,
	}
	unsubscribe, err := b.Subscribe(r.subject, r.receive)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeCache, "l2: subscribe "+r.subject)
	}
	r.unsubscribe = unsubscribe
	return r, nil
}

// Subject 返回广播主题
func (r *BroadcastRegion) Subject() string { return r.subject }

func (r *BroadcastRegion) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return r.local.Get(ctx, key)
}

func (r *BroadcastRegion) Put(ctx context.Context, key string, state []byte) error {
	return r.local.Put(ctx, key, state)
}

func (r *BroadcastRegion) Evict(ctx context.Context, key string) error {
	if err := r.local.Evict(ctx, key); err != nil {
		return err
	}
	return r.publish(evictMessage{Origin: r.origin, Key: key})
}

func (r *BroadcastRegion) EvictPrefix(ctx context.Context, prefix string) error {
	if err := r.local.EvictPrefix(ctx, prefix); err != nil {
		return err
	}
	return r.publish(evictMessage{Origin: r.origin, Key: prefix, Prefix: true})
}

func (r *BroadcastRegion) publish(msg evictMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeCacheSerialization, "l2: encode eviction")
	}
	if err := r.broker.Publish(r.subject, data); err != nil {
		return errors.WrapError(err, errors.ErrCodeCache, "l2: publish eviction")
	}
	return nil
}

func (r *BroadcastRegion) receive(data []byte) {
	ctx := context.Background()
	var msg evictMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Warn(ctx, "l2: malformed eviction", logging.Error(err))
		return
	}
	if msg.Origin == r.origin {
		return
	}
	var err error
	if msg.Prefix {
		err = r.local.EvictPrefix(ctx, msg.Key)
	} else {
		err = r.local.Evict(ctx, msg.Key)
	}
	if err != nil {
		r.logger.Warn(ctx, "l2: remote eviction failed", logging.String("origin", msg.Origin), logging.Error(err))
	}
}

// Close 取消订阅，并关闭自建的连接
func (r *BroadcastRegion) Close() error {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	var err error
	if unsubscribe != nil {
		err = unsubscribe()
	}
	if r.conn != nil {
		r.conn.Close()
	}
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeCache, "l2: unsubscribe")
	}
	return nil
}
