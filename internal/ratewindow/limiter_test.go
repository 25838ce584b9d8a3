package ratewindow

import (
	"testing"
	"time"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/clock"
)

func TestAdmitsUpToLimit(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	l := New(clk, 3)

	for i := 0; i < 3; i++ {
		if !l.Admit() {
			t.Fatalf("expected admission %d to succeed", i)
		}
	}
	if l.Admit() {
		t.Fatal("expected 4th admission within the window to be refused")
	}
}

func TestWindowSlides(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	l := New(clk, 2)

	l.Admit()
	clk.Advance(30 * time.Second)
	l.Admit()
	if l.Admit() {
		t.Fatal("expected third admission to be refused while both prior hits are still in-window")
	}

	clk.Advance(31 * time.Second) // first hit now 61s old, second is 31s old
	if !l.Admit() {
		t.Fatal("expected admission once the oldest hit fell out of the 60s window")
	}
}

func TestWouldAdmitDoesNotConsume(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	l := New(clk, 1)

	if !l.WouldAdmit() {
		t.Fatal("expected WouldAdmit to report capacity available")
	}
	if !l.WouldAdmit() {
		t.Fatal("WouldAdmit must not consume a slot")
	}
	if !l.Admit() {
		t.Fatal("expected Admit to still succeed after repeated WouldAdmit checks")
	}
	if l.Admit() {
		t.Fatal("expected the real Admit to consume the only slot")
	}
}
