package core

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ToolExecutor interface {
	GetName() string
	GetDescription() string
	Execute(ctx context.Context, input string) (string, error)
	GetToolDescriptor() ToolDescriptor
}

func NewToolRepo(registry *ToolRegistry) *ToolRepo {
	return &ToolRepo{
		registry: registry,
		tools:    make(map[string]ToolExecutor),
	}
}

// ToolRepo is the set of tools bound to a single agent.
type ToolRepo struct {
	registry *ToolRegistry
	tools    map[string]ToolExecutor
}

func (repo *ToolRepo) RegisterTool(name string) error {
	if repo.registry == nil {
		return fmt.Errorf("tool %s not found: no registry", name)
	}
	tool := repo.registry.GetTool(name)
	if tool == nil {
		return fmt.Errorf("tool %s not found", name)
	}
	repo.tools[tool.GetName()] = tool
	return nil
}

func (repo *ToolRepo) ListToolDescriptors() []ToolDescriptor {
	var list []ToolDescriptor
	for _, item := range repo.tools {
		list = append(list, item.GetToolDescriptor())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func (repo *ToolRepo) GetTool(name string) ToolExecutor {
	return repo.tools[name]
}

func NewInbuiltToolExecutor(name string, description string, handler any) (ToolExecutor, error) {
	handlerValue := reflect.ValueOf(handler)
	if !handlerValue.IsValid() {
		return nil, fmt.Errorf("handler is nil")
	}
	handlerType := handlerValue.Type()

	if handlerType.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler is not a function")
	}
	if handlerType.NumIn() != 2 {
		return nil, fmt.Errorf("handler function must have two parameters")
	}
	if handlerType.NumOut() != 2 {
		return nil, fmt.Errorf("handler function must have two return values")
	}
	if !handlerType.Out(1).Implements(reflect.TypeOf((*error)(nil)).Elem()) {
		return nil, fmt.Errorf("handler function's second return value must be an error")
	}
	inputType := handlerType.In(1)

	schema, err := GetSchema(reflect.New(inputType).Interface())
	if err != nil {
		return nil, err
	}
	schema.Version = ""
	schema.ID = ""
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	return &InbuiltToolExecutor{
		toolDescriptor: ToolDescriptor{
			Name:        name,
			Description: description,
			Parameters:  json.RawMessage(b),
		},
		schema:    gojsonschema.NewBytesLoader(b),
		inputType: inputType,
		handler:   handlerValue,
	}, nil
}

type InbuiltToolExecutor struct {
	toolDescriptor ToolDescriptor
	schema         gojsonschema.JSONLoader
	inputType      reflect.Type
	handler        reflect.Value
}

func (i *InbuiltToolExecutor) GetName() string {
	return i.toolDescriptor.Name
}

func (i *InbuiltToolExecutor) GetDescription() string {
	return i.toolDescriptor.Description
}

func (i *InbuiltToolExecutor) GetToolDescriptor() ToolDescriptor {
	return i.toolDescriptor
}

// Execute validates input against the tool's parameter schema, decodes it into
// the handler's input type and calls the handler. Handler errors are returned
// as tool output so the model can react to them.
func (i *InbuiltToolExecutor) Execute(ctx context.Context, input string) (string, error) {
	result, err := gojsonschema.Validate(i.schema, gojsonschema.NewStringLoader(input))
	if err != nil {
		return "", fmt.Errorf("validate input for %s: %w", i.GetName(), err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return "", fmt.Errorf("invalid input for %s: %s", i.GetName(), strings.Join(problems, "; "))
	}

	inputPtr := reflect.New(i.inputType)
	if err := json.Unmarshal([]byte(input), inputPtr.Interface()); err != nil {
		return "", fmt.Errorf("failed to unmarshal JSON input: %w", err)
	}

	results := i.handler.Call([]reflect.Value{reflect.ValueOf(ctx), inputPtr.Elem()})

	if errInterface := results[1].Interface(); errInterface != nil {
		return "error :" + errInterface.(error).Error(), nil
	}
	b, err := json.Marshal(results[0].Interface())
	if err != nil {
		return "", err
	}
	return string(b), nil
}
