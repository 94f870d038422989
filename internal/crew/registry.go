package crew

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Registry 在内存中存储和管理已加载的 crew 定义。
type Registry struct {
	crews map[string]*CrewSpec
	mutex sync.RWMutex
}

// NewRegistry 创建一个新的注册表实例。
func NewRegistry() *Registry {
	return &Registry{
		crews: make(map[string]*CrewSpec),
	}
}

// Register 将一个 crew 定义添加到注册表。
func (r *Registry) Register(spec *CrewSpec) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.crews[spec.Name] = spec
}

// Get 根据名称检索一个 crew 定义。
func (r *Registry) Get(name string) (*CrewSpec, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	spec, found := r.crews[name]
	return spec, found
}

// Names 返回所有已注册 crew 的名称。
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.crews))
	for name := range r.crews {
		names = append(names, name)
	}
	return names
}

// LoadDir 扫描定义目录，把每个包含 crew.yaml 的子目录加载为一个 crew。
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("读取 crew 定义目录 %s 失败: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		crewDir := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(crewDir, "crew.yaml")); err != nil {
			continue
		}

		spec, err := LoadCrewSpec(crewDir)
		if err != nil {
			return fmt.Errorf("加载 crew %s 失败: %w", entry.Name(), err)
		}
		r.Register(spec)
		loaded++
	}

	if loaded == 0 {
		return fmt.Errorf("目录 %s 中没有可用的 crew 定义", dir)
	}
	return nil
}
