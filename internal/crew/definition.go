package crew

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Process 定义了 crew 中任务的执行方式。
type Process string

const (
	// ProcessSequential 按定义顺序依次执行任务，前序输出作为后序上下文。
	ProcessSequential Process = "sequential"
	// ProcessHierarchical 由 manager agent 决定任务的执行与委派。
	ProcessHierarchical Process = "hierarchical"
)

// AgentSpec 描述一个 agent 的角色设定，对应 agents.yaml 中的一个条目。
type AgentSpec struct {
	Role            string `yaml:"role"`             // 角色名称
	Goal            string `yaml:"goal"`             // 角色目标
	Backstory       string `yaml:"backstory"`        // 角色背景设定
	AllowDelegation bool   `yaml:"allow_delegation"` // 是否允许向其他 agent 委派任务
	Memory          bool   `yaml:"memory"`           // 是否写入运行记忆
}

// TaskSpec 描述一个任务，对应 tasks.yaml 中的一个条目。
type TaskSpec struct {
	Description    string            `yaml:"description"`     // 任务描述
	ExpectedOutput string            `yaml:"expected_output"` // 期望输出的文字说明
	Agent          string            `yaml:"agent"`           // 执行该任务的 agent 名称
	Parameters     map[string]string `yaml:"parameters"`      // 输入字段说明 (字段 -> 含义)
	OutputSchema   OutputSchema      `yaml:"output_schema"`   // 结构化输出 schema (字段 -> 类型)
	OutputFile     string            `yaml:"output_file"`     // 任务输出写入的 markdown 文件名 (可选)
}

// RouteRule 是 hierarchical 协调器的关键词路由规则。
type RouteRule struct {
	Keywords []string `yaml:"keywords"` // 命中任意关键词即匹配 (不区分大小写)
	Agent    string   `yaml:"agent"`    // 路由到的 agent
	Task     string   `yaml:"task"`     // 路由到的任务
}

// CrewSpec 是一个完整的 crew 定义: crew.yaml 描述流程与成员，
// agents.yaml 与 tasks.yaml 描述角色与任务。
type CrewSpec struct {
	Name         string               `yaml:"name"`          // crew 名称
	Process      Process              `yaml:"process"`       // 执行方式
	ManagerAgent string               `yaml:"manager_agent"` // hierarchical 模式下的 manager
	TaskOrder    []string             `yaml:"tasks"`         // 任务执行顺序
	Routes       []RouteRule          `yaml:"routes"`        // 关键词路由规则 (hierarchical)
	Agents       map[string]AgentSpec `yaml:"-"`             // 从 agents.yaml 加载
	Tasks        map[string]TaskSpec  `yaml:"-"`             // 从 tasks.yaml 加载
}

// Validate 检查 crew 定义内部引用的一致性。
func (s *CrewSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("crew 定义缺少 name")
	}
	if s.Process != ProcessSequential && s.Process != ProcessHierarchical {
		return fmt.Errorf("crew %q 的 process 无效: %q", s.Name, s.Process)
	}
	if s.Process == ProcessHierarchical {
		if s.ManagerAgent == "" {
			return fmt.Errorf("crew %q 为 hierarchical 但未指定 manager_agent", s.Name)
		}
		if _, ok := s.Agents[s.ManagerAgent]; !ok {
			return fmt.Errorf("crew %q 的 manager_agent %q 未在 agents.yaml 中定义", s.Name, s.ManagerAgent)
		}
	}
	if len(s.TaskOrder) == 0 {
		return fmt.Errorf("crew %q 未声明任何任务", s.Name)
	}
	for _, taskName := range s.TaskOrder {
		task, ok := s.Tasks[taskName]
		if !ok {
			return fmt.Errorf("crew %q 引用了未定义的任务 %q", s.Name, taskName)
		}
		if _, ok := s.Agents[task.Agent]; !ok {
			return fmt.Errorf("任务 %q 引用了未定义的 agent %q", taskName, task.Agent)
		}
		if err := task.OutputSchema.Validate(); err != nil {
			return fmt.Errorf("任务 %q 的 output_schema 无效: %w", taskName, err)
		}
	}
	for _, route := range s.Routes {
		if _, ok := s.Tasks[route.Task]; route.Task != "" && !ok {
			return fmt.Errorf("路由规则引用了未定义的任务 %q", route.Task)
		}
	}
	return nil
}

// LoadCrewSpec 从目录加载一个 crew 定义。目录中必须包含
// crew.yaml、agents.yaml 和 tasks.yaml 三个文件。
func LoadCrewSpec(dir string) (*CrewSpec, error) {
	spec := &CrewSpec{}
	if err := readYAML(filepath.Join(dir, "crew.yaml"), spec); err != nil {
		return nil, err
	}
	if spec.Name == "" {
		spec.Name = filepath.Base(dir)
	}
	if spec.Process == "" {
		spec.Process = ProcessSequential
	}

	if err := readYAML(filepath.Join(dir, "agents.yaml"), &spec.Agents); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(dir, "tasks.yaml"), &spec.Tasks); err != nil {
		return nil, err
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return nil
}
