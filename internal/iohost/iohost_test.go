package iohost

import "testing"

func TestKeyDownReflectsSnapshot(t *testing.T) {
	s := NewSDLInput(nil)
	s.keys[42] = true
	if !s.KeyDown(42) {
		t.Fatal("expected KeyDown(42) true")
	}
	if s.KeyDown(7) {
		t.Fatal("expected KeyDown(7) false for an unset scancode")
	}
}

func TestAnyKeyDown(t *testing.T) {
	s := NewSDLInput(nil)
	if s.AnyKeyDown() {
		t.Fatal("expected no keys down initially")
	}
	s.keys[1] = true
	if !s.AnyKeyDown() {
		t.Fatal("expected AnyKeyDown true once a key is latched down")
	}
}

func TestMouseSnapshot(t *testing.T) {
	s := NewSDLInput(nil)
	s.mouseX, s.mouseY = 12, -34
	s.mouseDown = true
	if x, y := s.MousePosition(); x != 12 || y != -34 {
		t.Fatalf("MousePosition = (%v, %v), want (12, -34)", x, y)
	}
	if !s.MouseIsDown() {
		t.Fatal("expected MouseIsDown true")
	}
}

func TestAskAndWaitBlocksUntilAnswered(t *testing.T) {
	s := NewSDLInput(nil)

	if _, done := s.AskAndWait("what's your name?"); done {
		t.Fatal("expected first AskAndWait poll to register the question and report not-done")
	}
	if _, done := s.AskAndWait("what's your name?"); done {
		t.Fatal("expected a second poll with no answer yet to still report not-done")
	}

	s.SubmitAnswer("Giraffe")

	answer, done := s.AskAndWait("what's your name?")
	if !done {
		t.Fatal("expected AskAndWait to report done once an answer was submitted")
	}
	if answer != "Giraffe" {
		t.Fatalf("answer = %q, want %q", answer, "Giraffe")
	}
}

func TestSubmitAnswerWithNoPendingQuestionIsANoop(t *testing.T) {
	s := NewSDLInput(nil)
	s.SubmitAnswer("nobody asked") // must not panic or block
}
