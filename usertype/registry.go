package usertype

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"matrixsql/logging"
)

// Constructor 返回一个尚未配置的新适配器实例
type Constructor func() (UserType, error)

// Define 将映射器构造函数包装为 Constructor
func Define[T, J any](supplier func() ColumnMapper[T, J], opts ...Option) Constructor {
	return func() (UserType, error) {
		t, err := Of(supplier, opts...)
		if err != nil {
			return nil, err
		}
		return t.Untyped(), nil
	}
}

// Registry 按名称与参数缓存已配置的适配器。
//
// 同一名称与参数组合只构造并配置一次，发布出去的实例均已配置完成。
// 参数优先级：声明参数 > Settings 默认参数 > 映射器内置默认值。
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	instances    map[string]UserType
	settings     Settings
	group        singleflight.Group
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		instances:    make(map[string]UserType),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry 返回进程级注册表，columns 包在 init 中向其注册内置类型
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register 注册类型构造函数，重名返回配置错误
func (r *Registry) Register(name string, c Constructor) error {
	if name == "" || c == nil {
		return NewConfigurationError("usertype: register requires a name and a constructor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.constructors[name]; exists {
		return NewConfigurationError("usertype %s: already registered", name)
	}
	r.constructors[name] = c
	return nil
}

// MustRegister 同 Register，失败时 panic，供 init 使用
func (r *Registry) MustRegister(name string, c Constructor) {
	if err := r.Register(name, c); err != nil {
		panic(err)
	}
}

// WithSettings 设置全局默认参数来源；已缓存的实例不受影响
func (r *Registry) WithSettings(s Settings) *Registry {
	r.mu.Lock()
	r.settings = s
	r.mu.Unlock()
	return r
}

// Names 返回已注册的类型名（有序）
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve 返回按 params 配置好的适配器
func (r *Registry) Resolve(name string, params Parameters) (UserType, error) {
	r.mu.RLock()
	settings := r.settings
	r.mu.RUnlock()

	effective := params
	if settings != nil {
		effective = settings.TypeParameters(name).Merge(params)
	}
	key := name + "|" + effective.canonical()

	r.mu.RLock()
	ut, ok := r.instances[key]
	r.mu.RUnlock()
	if ok {
		return ut, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.RLock()
		ut, ok := r.instances[key]
		c, known := r.constructors[name]
		r.mu.RUnlock()
		if ok {
			return ut, nil
		}
		if !known {
			return nil, NewConfigurationError("usertype %s: not registered", name)
		}

		ut, err := c()
		if err != nil {
			return nil, err
		}
		if err := ut.Configure(effective); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.instances[key] = ut
		r.mu.Unlock()

		logging.GetLogger().Debug(context.Background(), "user type configured",
			logging.String("type", name),
			logging.String("params", effective.canonical()),
		)
		return ut, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(UserType), nil
}

// MustResolve 同 Resolve，失败时 panic
func (r *Registry) MustResolve(name string, params Parameters) UserType {
	ut, err := r.Resolve(name, params)
	if err != nil {
		panic(err)
	}
	return ut
}
