package gekko

import (
	"fmt"
	"reflect"
)

// LightPipelineTag marks that a light pipeline has been installed into the
// App. Pollers and uploads assume a single pipeline per App.
type LightPipelineTag struct {
	Name string
}

// ensureSingleLightPipeline panics when a second pipeline is installed.
func ensureSingleLightPipeline(app *App, name string) {
	if app == nil {
		panic("ensureSingleLightPipeline: app is nil")
	}
	t := reflect.TypeOf((*LightPipelineTag)(nil)).Elem()
	if res, ok := app.resources[t]; ok {
		tag, ok := res.(*LightPipelineTag)
		if !ok {
			panic("LightPipelineTag resource present with unexpected type")
		}
		app.Logger().Errorf("Multiple light pipelines installed: %s and %s", tag.Name, name)
		panic(fmt.Sprintf("Multiple light pipelines installed: %s and %s", tag.Name, name))
	}
	app.addResources(&LightPipelineTag{Name: name})
}
