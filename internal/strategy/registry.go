package strategy

import (
	"fmt"
	"sort"
	"sync"
)

// Factory는 템플릿 파라미터로 전략 정의를 만듭니다
type Factory func(params map[string]interface{}) (Definition, error)

// Template은 등록된 파라미터화 전략입니다
type Template struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Defaults    map[string]interface{} `json:"defaults"`
	factory     Factory
}

// Registry는 사용 가능한 전략 템플릿을 보관합니다
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry는 빈 레지스트리를 생성합니다
func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[string]Template),
	}
}

// Register는 템플릿을 추가합니다. 나중 등록이 이전 등록을 대체합니다
func (r *Registry) Register(name, description string, defaults map[string]interface{}, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = Template{
		Name:        name,
		Description: description,
		Defaults:    defaults,
		factory:     factory,
	}
}

// Definition은 주어진 파라미터로 템플릿의 정의를 만듭니다
func (r *Registry) Definition(name string, params map[string]interface{}) (Definition, error) {
	r.mu.RLock()
	tmpl, exists := r.templates[name]
	r.mu.RUnlock()
	if !exists {
		return Definition{}, configErr("strategy", fmt.Errorf("%w: %s", ErrUnknownStrategy, name))
	}

	def, err := tmpl.factory(params)
	if err != nil {
		return Definition{}, configErr("params", err)
	}
	return def, nil
}

// Create는 템플릿 인스턴스를 만들고 검증합니다
func (r *Registry) Create(name string, params map[string]interface{}) (*Spec, error) {
	def, err := r.Definition(name, params)
	if err != nil {
		return nil, err
	}
	return New(def)
}

// ListStrategies는 등록된 템플릿 이름을 정렬해 반환합니다
func (r *Registry) ListStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Templates는 등록된 모든 템플릿을 이름순으로 반환합니다
func (r *Registry) Templates() []Template {
	names := r.ListStrategies()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Template, 0, len(names))
	for _, name := range names {
		out = append(out, r.templates[name])
	}
	return out
}
