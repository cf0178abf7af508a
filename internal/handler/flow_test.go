package handler_test

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/toribot/internal/handler"
	"github.com/google/go-cmp/cmp"
)

type fixedID string

func (f fixedID) Next() (string, error) { return string(f), nil }

func component(customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionMessageComponent,
			Data: discordgo.MessageComponentInteractionData{CustomID: customID},
		},
	}
}

func TestInstanceIDFromCustomID(t *testing.T) {
	tests := []struct {
		customID string
		want     string
	}{
		{customID: "confirm:abc", want: "abc"},
		{customID: "confirm:abc:def", want: "abc:def"},
		{customID: "confirm", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.customID, func(t *testing.T) {
			if got := handler.InstanceIDFromCustomID(tt.customID); got != tt.want {
				t.Errorf("InstanceIDFromCustomID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlowManager_MultiStep(t *testing.T) {
	var steps []string
	step := func(name string) func(handler.DiscordSession, *discordgo.InteractionCreate, *handler.FlowContext) error {
		return func(_ handler.DiscordSession, _ *discordgo.InteractionCreate, ctx *handler.FlowContext) error {
			steps = append(steps, name+":"+ctx.InstanceID)
			return nil
		}
	}

	fm := handler.NewFlowManager(fixedID("abc"))
	fm.RegisterFlow(&handler.Flow{
		ID: "confirm",
		Root: &handler.Node{
			ID:      "ask",
			Matcher: func(i *discordgo.InteractionCreate) bool { return i.Type == discordgo.InteractionApplicationCommand },
			Handler: step("ask"),
			Next: []*handler.Node{
				{
					ID: "yes",
					Matcher: func(i *discordgo.InteractionCreate) bool {
						return i.MessageComponentData().CustomID == "yes:abc"
					},
					Handler: step("yes"),
				},
			},
		},
	})

	s := &fakeSession{}
	if err := fm.Router(s, command("anything")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fm.Active() != 1 {
		t.Fatalf("expected one active flow, got %d", fm.Active())
	}

	if err := fm.Router(s, component("no:abc")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fm.Router(s, component("yes:abc")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"ask:abc", "yes:abc"}, steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
	if fm.Active() != 0 {
		t.Errorf("expected the finished flow to be dropped, got %d active", fm.Active())
	}
}

func TestFlowManager_SingleStepNotTracked(t *testing.T) {
	fm := handler.NewFlowManager(nil)
	fm.RegisterFlow(handler.PingFlow)

	s := &fakeSession{}
	for range 3 {
		if err := fm.Router(s, command(handler.CommandPing)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if fm.Active() != 0 {
		t.Errorf("expected no tracked flows, got %d", fm.Active())
	}
	if len(s.responses) != 3 {
		t.Errorf("expected 3 responses, got %d", len(s.responses))
	}
}

func TestFlowManager_FinishEndsLoopingFlow(t *testing.T) {
	presses := 0
	repeat := &handler.Node{
		ID: "more",
		Matcher: func(i *discordgo.InteractionCreate) bool {
			return i.Type == discordgo.InteractionMessageComponent
		},
		Handler: func(_ handler.DiscordSession, _ *discordgo.InteractionCreate, ctx *handler.FlowContext) error {
			presses++
			if presses == 2 {
				ctx.Finish()
			}
			return nil
		},
	}
	repeat.Next = []*handler.Node{repeat}

	fm := handler.NewFlowManager(fixedID("abc"))
	fm.RegisterFlow(&handler.Flow{
		ID: "pages",
		Root: &handler.Node{
			ID:      "start",
			Matcher: func(i *discordgo.InteractionCreate) bool { return i.Type == discordgo.InteractionApplicationCommand },
			Handler: func(handler.DiscordSession, *discordgo.InteractionCreate, *handler.FlowContext) error { return nil },
			Next:    []*handler.Node{repeat},
		},
	})

	s := &fakeSession{}
	if err := fm.Router(s, command("anything")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 3 {
		if err := fm.Router(s, component("more:abc")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if presses != 2 {
		t.Errorf("expected the flow to stop after it finished, got %d presses", presses)
	}
	if fm.Active() != 0 {
		t.Errorf("expected the finished flow to be dropped, got %d active", fm.Active())
	}
}

func TestFlowManager_FailedRootNotTracked(t *testing.T) {
	fm := handler.NewFlowManager(fixedID("abc"))
	fm.RegisterFlow(&handler.Flow{
		ID: "broken",
		Root: &handler.Node{
			ID:      "start",
			Matcher: func(i *discordgo.InteractionCreate) bool { return i.Type == discordgo.InteractionApplicationCommand },
			Handler: func(handler.DiscordSession, *discordgo.InteractionCreate, *handler.FlowContext) error {
				return errors.New("lookup failed")
			},
			Next: []*handler.Node{{ID: "never", Matcher: func(*discordgo.InteractionCreate) bool { return true }}},
		},
	})

	if err := fm.Router(&fakeSession{}, command("anything")); err == nil {
		t.Fatal("expected the root error")
	}
	if fm.Active() != 0 {
		t.Errorf("expected a failed flow not to wait for input, got %d", fm.Active())
	}
}
