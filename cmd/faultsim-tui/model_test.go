package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/adamsih300u/bastion-sub008/pkg/analysis"
	"github.com/adamsih300u/bastion-sub008/pkg/client"
	"github.com/adamsih300u/bastion-sub008/pkg/graph"
	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
)

type fakeDaemon struct {
	namespaces []string
	latest     map[string]simulation.SimulateResponse
	eventsErr  error
	err        error
	topologies []string
}

func (f *fakeDaemon) Namespaces(context.Context) ([]string, error) {
	return f.namespaces, f.err
}

func (f *fakeDaemon) GetTopology(_ context.Context, ns string) (simulation.TopologyResponse, error) {
	f.topologies = append(f.topologies, ns)
	return simulation.TopologyResponse{Success: true, Namespace: ns, ComponentCount: 3, EdgeCount: 2}, nil
}

func (f *fakeDaemon) LatestResult(_ context.Context, ns string) (simulation.SimulateResponse, bool, error) {
	res, ok := f.latest[ns]
	return res, ok, nil
}

func (f *fakeDaemon) GetEvents(context.Context, client.EventsOptions) ([]client.Event, error) {
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return []client.Event{{
		EventType:  "simulation_completed",
		TsEvent:    time.Now(),
		Dimensions: client.EventDimensions{Namespace: "grid", SimulationID: "sim-1"},
	}}, nil
}

func gridDaemon() *fakeDaemon {
	return &fakeDaemon{
		namespaces: []string{"grid", "plant"},
		latest: map[string]simulation.SimulateResponse{
			"grid": {
				Success:        true,
				SimulationType: simulation.TypeCascade,
				ComponentStates: []simulation.ComponentState{
					{ComponentID: "gen1", State: graph.StateFailed},
					{ComponentID: "bus1", State: graph.StateDegraded},
					{ComponentID: "load1", State: graph.StateOperational},
				},
				HealthMetrics: analysis.HealthMetrics{
					TotalComponents:        3,
					FailedComponents:       1,
					DegradedComponents:     1,
					SystemHealthScore:      0.5,
					RedundancyGroupsAtRisk: []string{"generators"},
				},
			},
		},
		eventsErr: errors.New("event_log_disabled"),
	}
}

func TestFetchData_DefaultsToFirstNamespace(t *testing.T) {
	d := gridDaemon()
	msg := fetchData(d, "")
	if msg.err != nil {
		t.Fatalf("unexpected error: %v", msg.err)
	}
	if msg.namespace != "grid" {
		t.Errorf("expected grid, got %q", msg.namespace)
	}
	if msg.latest == nil || msg.latest.HealthMetrics.FailedComponents != 1 {
		t.Errorf("expected latest result, got %+v", msg.latest)
	}
	if msg.events != nil {
		t.Errorf("expected no events when the log is disabled, got %v", msg.events)
	}
}

func TestFetchData_UnknownNamespaceSkipsTopology(t *testing.T) {
	d := gridDaemon()
	msg := fetchData(d, "ghost")
	if msg.err != nil {
		t.Fatalf("unexpected error: %v", msg.err)
	}
	if len(d.topologies) != 0 {
		t.Errorf("expected no topology calls, got %v", d.topologies)
	}
}

func TestFetchData_Offline(t *testing.T) {
	msg := fetchData(&fakeDaemon{err: errors.New("connection refused")}, "")
	if msg.err == nil {
		t.Fatal("expected error")
	}
}

func TestModel_View(t *testing.T) {
	m := newModel(gridDaemon(), "", time.Second)
	if !strings.Contains(m.View(), "Connecting") {
		t.Errorf("expected connecting view before first fetch")
	}

	updated, _ := m.Update(fetchData(gridDaemon(), ""))
	view := updated.View()
	for _, want := range []string{"Namespace grid", "3 components", "gen1", "bus1", "At risk: generators", "Online"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "load1") {
		t.Errorf("operational components should not be listed:\n%s", view)
	}

	updated, _ = updated.Update(dataMsg{err: errors.New("connection refused")})
	if !strings.Contains(updated.View(), "Offline: connection refused") {
		t.Errorf("expected offline status")
	}
}

func TestModel_TabCyclesNamespaces(t *testing.T) {
	m := newModel(gridDaemon(), "", time.Second)
	updated, _ := m.Update(fetchData(gridDaemon(), ""))

	updated, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := updated.(model).namespace; got != "plant" {
		t.Fatalf("expected plant after tab, got %q", got)
	}
	if cmd == nil {
		t.Fatal("expected a fetch command")
	}
	updated, _ = updated.Update(cmd())
	if !strings.Contains(updated.View(), "No simulation yet") {
		t.Errorf("expected plant to have no simulation:\n%s", updated.View())
	}

	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := updated.(model).namespace; got != "grid" {
		t.Errorf("expected wrap to grid, got %q", got)
	}
}

func TestModel_Quit(t *testing.T) {
	m := newModel(gridDaemon(), "", time.Second)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
