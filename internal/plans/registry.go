package plans

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// ResourceSubscriptions is the quota key for active subscriptions.
const ResourceSubscriptions = "subscriptions"

// Plan maps resource keys to the maximum count a user on the plan may hold.
// A missing or negative limit means unlimited.
type Plan struct {
	PlanID string         `json:"plan_id"`
	Name   string         `json:"name"`
	Limits map[string]int `json:"limits"`
}

type PlansFile struct {
	DefaultPlan string `json:"default_plan"`
	Plans       []Plan `json:"plans"`
}

type Registry struct {
	mu          sync.RWMutex
	plans       map[string]*Plan
	defaultPlan string
}

func NewRegistry() *Registry {
	return &Registry{plans: make(map[string]*Plan)}
}

func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plans config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Registry, error) {
	var file PlansFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plans config: %w", err)
	}

	registry := NewRegistry()
	for i := range file.Plans {
		registry.Register(&file.Plans[i])
	}
	registry.defaultPlan = file.DefaultPlan
	return registry, nil
}

func (r *Registry) Register(p *Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.PlanID] = p
}

func (r *Registry) Get(planID string) *Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.plans[planID]; ok {
		return p
	}
	return r.plans[r.defaultPlan]
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plans)
}

// Limit returns the limit for resource on planID; ok is false when unlimited.
// Unknown plans fall back to the default plan.
func (r *Registry) Limit(planID, resource string) (limit int, ok bool) {
	p := r.Get(planID)
	if p == nil {
		return 0, false
	}
	limit, ok = p.Limits[resource]
	if !ok || limit < 0 {
		return 0, false
	}
	return limit, true
}

// Allows reports whether holding proposed units of resource fits planID.
func (r *Registry) Allows(planID, resource string, proposed int) bool {
	limit, ok := r.Limit(planID, resource)
	if !ok {
		return true
	}
	return proposed <= limit
}
