package gekko

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")

	assert.Same(t, resource2, Resource[MockResource2](app))
	assert.Nil(t, Resource[Time](app))
}

func TestApp_StepRunsStagesInOrder(t *testing.T) {
	app := NewAppBuilder().Build()
	var calls []string
	record := func(name string) func() {
		return func() { calls = append(calls, name) }
	}
	app.UseSystem(System(record("render")).InStage(Render))
	app.UseSystem(System(record("update")))
	app.UseSystem(System(record("pre-update")).InStage(PreUpdate))
	app.UseSystem(System(record("update-2")))

	app.Step()
	assert.Equal(t, []string{"pre-update", "update", "update-2", "render"}, calls)
	assert.Equal(t, uint64(1), app.Frame())
}

func TestApp_InjectsCommandsAndResources(t *testing.T) {
	app := NewAppBuilder().Build()
	app.addResources(NewMockResource1("first"))

	var seen string
	var eid EntityId
	app.UseSystem(System(func(res *MockResource1, cmd *Commands) {
		seen = res.name
		res.name = "changed"
		eid = cmd.AddEntity(&MockResource2{name: "component"})
	}))
	app.Step()

	assert.Equal(t, "first", seen)
	assert.Equal(t, "changed", Resource[MockResource1](app).name)
	assert.True(t, app.ecs.hasEntity(eid), "commands flush after the stage")
}

func TestApp_UnresolvedDependencyPanics(t *testing.T) {
	app := NewAppBuilder().Build()
	app.UseSystem(System(func(res *MockResource2) {}))
	assert.Panics(t, func() { app.Step() })
}

func TestApp_UseStage(t *testing.T) {
	app := NewAppBuilder().Build()
	custom := Stage{Name: "Upload"}
	app.UseStage(custom, AfterStage(Render))

	names := app.Stages()
	require.Contains(t, names, "Upload")
	for i, name := range names {
		if name == "Render" {
			assert.Equal(t, "Upload", names[i+1])
		}
	}

	assert.Panics(t, func() { app.UseStage(custom, BeforeStage(Update)) })
	assert.Panics(t, func() { app.UseStage(Stage{Name: "x"}, BeforeStage(Stage{Name: "missing"})) })
	assert.Panics(t, func() { app.UseSystem(System(func() {}).InStage(Stage{Name: "missing"})) })
}

func TestApp_RunStopsOnExitAndShutsDownOnce(t *testing.T) {
	app := NewAppBuilder().Build()
	var order []string
	cmd := app.Commands()
	cmd.OnShutdown(func() { order = append(order, "first") })
	cmd.OnShutdown(func() { order = append(order, "second") })

	app.UseSystem(System(func(cmd *Commands) {
		if cmd.app.Frame() == 3 {
			cmd.Exit()
		}
	}))
	app.Run()

	assert.Equal(t, uint64(3), app.Frame())
	assert.True(t, app.Exiting())
	assert.Equal(t, []string{"second", "first"}, order)

	app.Shutdown()
	assert.Len(t, order, 2)
}

func TestApp_FlushCommandsRemovesComponents(t *testing.T) {
	type Tag struct{ v int }
	type Other struct{ s string }

	app := NewAppBuilder().Build()
	cmd := app.Commands()
	eid := cmd.AddEntity(Tag{v: 1}, Other{s: "x"})
	app.FlushCommands()

	cmd.RemoveComponents(eid, Other{})
	app.FlushCommands()
	assert.Equal(t, []any{Tag{v: 1}}, cmd.GetAllComponents(eid))

	cmd.RemoveEntity(eid)
	app.FlushCommands()
	assert.Nil(t, cmd.GetAllComponents(eid))
}
