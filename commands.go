package gekko

type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) UseSystem(system any) *Commands {
	if sched, ok := system.(systemScheduleBuilder); ok {
		cmd.app.UseSystem(sched)
	} else {
		cmd.app.UseSystem(System(system))
	}
	return cmd
}

// OnShutdown registers fn to run once when the app shuts down.
func (cmd *Commands) OnShutdown(fn func()) *Commands {
	cmd.app.onShutdown(fn)
	return cmd
}

// Exit stops App.Run after the current frame.
func (cmd *Commands) Exit() {
	cmd.app.exit()
}

func (cmd *Commands) AddEntity(components ...any) EntityId {
	eid := cmd.app.ecs.nextEntityId()
	cmd.app.pendingAdditions = append(cmd.app.pendingAdditions, pendingAdd{
		eid:        eid,
		components: components,
	})
	return eid
}

func (cmd *Commands) AddComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompAdds = append(cmd.app.pendingCompAdds, pendingCompAdd{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompRemovals = append(cmd.app.pendingCompRemovals, pendingCompRemoval{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveEntity(entityId EntityId) {
	cmd.app.pendingRemovals = append(cmd.app.pendingRemovals, entityId)
}

func (cmd *Commands) GetAllComponents(entityId EntityId) []any {
	ecs := cmd.app.ecs
	archId, ok := ecs.entityIndex[entityId]
	if !ok {
		return nil
	}
	arch := ecs.archetypes[archId]
	row := arch.entities[entityId]

	var res []any
	for _, componentId := range arch.key {
		val := reflectSliceGet(arch.componentData[componentId], int(row))
		res = append(res, val.Interface())
	}
	return res
}
