package chat

import (
	"encoding/xml"
	"strings"
	"testing"
)

func tokensFromXML(t *testing.T, doc string) (xml.StartElement, []xml.Token) {
	t.Helper()
	d := xml.NewDecoder(strings.NewReader(doc))
	tok, err := d.Token()
	if err != nil {
		t.Fatalf("error reading start: %v", err)
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		t.Fatalf("expected a start element, got %T", tok)
	}
	toks, err := readAll(d)
	if err != nil {
		t.Fatalf("error reading body: %v", err)
	}
	return start, toks
}

func TestClassifyPlainMessage(t *testing.T) {
	start, toks := tokensFromXML(t, `<message from='juliet@example.net' type='chat'><body>hello</body></message>`)
	msg, err := messageFromStart(start)
	if err != nil {
		t.Fatalf("error parsing start: %v", err)
	}
	ev := classify(msg, toks)
	if ev.Kind != KindMessage {
		t.Fatalf("expected KindMessage, got %v", ev.Kind)
	}
	if ev.Body != "hello" {
		t.Errorf("wrong body: got %q", ev.Body)
	}
}

func TestClassifyChatState(t *testing.T) {
	start, toks := tokensFromXML(t, `<message from='juliet@example.net' type='chat'><composing xmlns='http://jabber.org/protocol/chatstates'/></message>`)
	msg, _ := messageFromStart(start)
	ev := classify(msg, toks)
	if ev.Kind != KindChatState || ev.State != StateComposing {
		t.Fatalf("expected composing chat state, got kind=%v state=%v", ev.Kind, ev.State)
	}
}

func TestClassifyReactions(t *testing.T) {
	start, toks := tokensFromXML(t, `<message from='juliet@example.net' type='chat'>`+
		`<reactions xmlns='urn:xmpp:reactions:0' id='abc123'><reaction>👍</reaction><reaction>🎉</reaction></reactions>`+
		`</message>`)
	msg, _ := messageFromStart(start)
	ev := classify(msg, toks)
	if ev.Kind != KindReaction {
		t.Fatalf("expected KindReaction, got %v", ev.Kind)
	}
	if ev.ReactionTo != "abc123" {
		t.Errorf("wrong reaction target: got %q", ev.ReactionTo)
	}
	if len(ev.Reactions) != 2 || ev.Reactions[0] != "👍" {
		t.Errorf("wrong reactions: got %v", ev.Reactions)
	}
}

func TestClassifyFasteningRetraction(t *testing.T) {
	start, toks := tokensFromXML(t, `<message from='juliet@example.net' type='chat'>`+
		`<apply-to xmlns='urn:xmpp:fasten:0' id='msg1'><retract xmlns='urn:xmpp:message-retract:1'/></apply-to>`+
		`</message>`)
	msg, _ := messageFromStart(start)
	ev := classify(msg, toks)
	if ev.Kind != KindRetraction {
		t.Fatalf("expected KindRetraction, got %v", ev.Kind)
	}
	if ev.RetractID != "msg1" {
		t.Errorf("wrong retract target: got %q", ev.RetractID)
	}
}

func TestClassifyCorrection(t *testing.T) {
	start, toks := tokensFromXML(t, `<message from='juliet@example.net' type='chat'>`+
		`<replace xmlns='urn:xmpp:message-correct:0' id='msg1'/><body>corrected text</body>`+
		`</message>`)
	msg, _ := messageFromStart(start)
	ev := classify(msg, toks)
	if ev.Kind != KindCorrection {
		t.Fatalf("expected KindCorrection, got %v", ev.Kind)
	}
	if ev.ReplaceID != "msg1" {
		t.Errorf("wrong replace target: got %q", ev.ReplaceID)
	}
	if ev.Body != "corrected text" {
		t.Errorf("wrong corrected body: got %q", ev.Body)
	}
}

func TestClassifyGroupSubject(t *testing.T) {
	start, toks := tokensFromXML(t, `<message from='room@conference.example.net' type='groupchat'><subject>Tonight's topic</subject></message>`)
	msg, _ := messageFromStart(start)
	ev := classify(msg, toks)
	if ev.Kind != KindGroupSubject {
		t.Fatalf("expected KindGroupSubject, got %v", ev.Kind)
	}
	if ev.Body != "Tonight's topic" {
		t.Errorf("wrong subject: got %q", ev.Body)
	}
}

func TestClassifyCarbonUnwraps(t *testing.T) {
	start, toks := tokensFromXML(t, `<message from='juliet@example.net/home'>`+
		`<sent xmlns='urn:xmpp:carbons:2'><forwarded xmlns='urn:xmpp:forward:0'>`+
		`<message from='juliet@example.net/mobile' to='romeo@example.net' type='chat'><body>hi from the other device</body></message>`+
		`</forwarded></sent>`+
		`</message>`)
	msg, _ := messageFromStart(start)
	ev := classify(msg, toks)
	if !ev.Carbon || !ev.Sent {
		t.Fatalf("expected a sent carbon, got carbon=%v sent=%v", ev.Carbon, ev.Sent)
	}
	if ev.Body != "hi from the other device" {
		t.Errorf("wrong unwrapped body: got %q", ev.Body)
	}
	if ev.From.String() != "juliet@example.net/mobile" {
		t.Errorf("wrong unwrapped from: got %v", ev.From)
	}
}

func TestOutboundBuildAssignsUUID(t *testing.T) {
	out := Outbound{Body: "hello"}
	id, _ := out.Build()
	if id == "" {
		t.Fatalf("expected a non-empty stanza id")
	}
}
