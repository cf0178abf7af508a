package handler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/toribot/internal/generator"
)

func InstanceIDFromInteraction(i *discordgo.InteractionCreate) string {
	var customID string

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		customID = i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		customID = i.ModalSubmitData().CustomID
	default:
		return ""
	}

	return InstanceIDFromCustomID(customID)
}

func InstanceIDFromCustomID(customID string) string {
	parts := strings.SplitN(customID, ":", 2)
	if len(parts) != 2 {
		return ""
	}

	return parts[1]
}

// sessionTTL is how long a multi-step flow waits for its next step.
const sessionTTL = 15 * time.Minute

// FlowContext is the state carried between the steps of one flow instance.
type FlowContext struct {
	InstanceID string
	State      map[string]any

	done bool
}

// Finish ends the flow instance after the current step, even if its node
// has further steps.
func (c *FlowContext) Finish() {
	c.done = true
}

// Node is one step of a flow. Handler runs when Matcher accepts an
// interaction.
type Node struct {
	ID      string
	Matcher func(*discordgo.InteractionCreate) bool
	Handler func(DiscordSession, *discordgo.InteractionCreate, *FlowContext) error
	Next    []*Node
}

// Flow is a tree of interaction steps. A single-node flow is a plain
// slash command.
type Flow struct {
	ID   string
	Root *Node
}

type session struct {
	flow    *Flow
	node    *Node
	ctx     *FlowContext
	expires time.Time

	// mu serializes steps of the same instance.
	mu sync.Mutex
}

type FlowManager struct {
	flowsMu *sync.RWMutex
	flows   map[string]*Flow

	sessionsMu *sync.RWMutex
	sessions   map[string]*session

	idGenerator generator.Generator[string]
}

func NewFlowManager(idGenerator generator.Generator[string]) *FlowManager {
	if idGenerator == nil {
		idGenerator = &generator.UUIDV4Generator{}
	}
	return &FlowManager{
		flowsMu:     &sync.RWMutex{},
		flows:       make(map[string]*Flow),
		sessionsMu:  &sync.RWMutex{},
		sessions:    make(map[string]*session),
		idGenerator: idGenerator,
	}
}

// RegisterFlow adds flow. Registering the same ID twice panics.
func (fm *FlowManager) RegisterFlow(flow *Flow) {
	fm.flowsMu.Lock()
	defer fm.flowsMu.Unlock()

	if _, exists := fm.flows[flow.ID]; exists {
		panic("flow already registered")
	}
	fm.flows[flow.ID] = flow
}

// Router advances the flow instance an interaction belongs to, or starts
// the first flow whose root matches.
func (fm *FlowManager) Router(s DiscordSession, i *discordgo.InteractionCreate) error {
	instanceID := InstanceIDFromInteraction(i)
	if instanceID != "" {
		fm.sessionsMu.RLock()
		session, inFlow := fm.sessions[instanceID]
		fm.sessionsMu.RUnlock()
		if inFlow && time.Now().Before(session.expires) {
			return fm.advance(s, i, session)
		}
		if inFlow {
			fm.finish(instanceID)
		}
	}

	return fm.initializeFlow(s, i)
}

func (fm *FlowManager) advance(
	s DiscordSession,
	i *discordgo.InteractionCreate,
	sess *session,
) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	finishFlow := func() {
		sess.ctx.done = true
		fm.finish(sess.ctx.InstanceID)
	}

	if len(sess.node.Next) == 0 || sess.ctx.done {
		finishFlow()
		return nil
	}

	var nextNode *Node
	for _, n := range sess.node.Next {
		if n.Matcher(i) {
			nextNode = n
			break
		}
	}
	if nextNode == nil {
		return nil
	}

	sess.node = nextNode
	if err := runHandler(s, i, sess); err != nil {
		finishFlow()
		return err
	}

	if len(nextNode.Next) == 0 || sess.ctx.done {
		finishFlow()
	}
	return nil
}

func (fm *FlowManager) finish(instanceID string) {
	fm.sessionsMu.Lock()
	defer fm.sessionsMu.Unlock()
	delete(fm.sessions, instanceID)
}

// Active returns how many multi-step flows are waiting for input.
func (fm *FlowManager) Active() int {
	fm.sessionsMu.RLock()
	defer fm.sessionsMu.RUnlock()
	return len(fm.sessions)
}

func (fm *FlowManager) initializeFlow(s DiscordSession, i *discordgo.InteractionCreate) error {
	// Find the first matching flow
	var f *Flow
	for _, flow := range fm.flows {
		if flow.Root.Matcher(i) {
			f = flow
			break
		}
	}
	if f == nil {
		return nil
	}

	instanceID, err := fm.idGenerator.Next()
	if err != nil {
		return fmt.Errorf("failed to generate instance ID: %w", err)
	}

	ctx := &FlowContext{
		InstanceID: instanceID,
		State:      make(map[string]any),
	}
	newSess := &session{flow: f, node: f.Root, ctx: ctx, expires: time.Now().Add(sessionTTL)}

	// Single-step flows have nothing to wait for.
	if len(f.Root.Next) == 0 {
		return runHandler(s, i, newSess)
	}

	// The root step may hand out components before it returns, so the
	// session is stored first and held until the step is done.
	newSess.mu.Lock()
	fm.sessionsMu.Lock()
	fm.sweepLocked()
	fm.sessions[instanceID] = newSess
	fm.sessionsMu.Unlock()

	err = runHandler(s, i, newSess)
	newSess.mu.Unlock()
	if err != nil || ctx.done {
		fm.finish(instanceID)
	}
	return err
}

// sweepLocked drops sessions nobody advanced in time.
func (fm *FlowManager) sweepLocked() {
	now := time.Now()
	for id, sess := range fm.sessions {
		if now.After(sess.expires) {
			delete(fm.sessions, id)
		}
	}
}

func runHandler(s DiscordSession, i *discordgo.InteractionCreate, sess *session) error {
	return sess.node.Handler(s, i, sess.ctx)
}
