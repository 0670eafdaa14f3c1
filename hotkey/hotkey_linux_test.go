//go:build linux

package hotkey

import "testing"

type keyEvent struct {
	code  uint16
	value int32
}

func TestChordPressRequiresBothModifiers(t *testing.T) {
	cases := []struct {
		name   string
		events []keyEvent
		want   bool
	}{
		{
			name: "ctrl shift space",
			events: []keyEvent{
				{codeLCtrl, valPress}, {codeLShift, valPress}, {codeSpace, valPress},
			},
			want: true,
		},
		{
			name: "right side modifiers",
			events: []keyEvent{
				{codeRCtrl, valPress}, {codeRShift, valPress}, {codeSpace, valPress},
			},
			want: true,
		},
		{
			name: "ctrl only",
			events: []keyEvent{
				{codeLCtrl, valPress}, {codeSpace, valPress},
			},
			want: false,
		},
		{
			name: "shift only",
			events: []keyEvent{
				{codeLShift, valPress}, {codeSpace, valPress},
			},
			want: false,
		},
		{
			name: "ctrl released before space",
			events: []keyEvent{
				{codeLCtrl, valPress}, {codeLShift, valPress},
				{codeLCtrl, valRelease}, {codeSpace, valPress},
			},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c chord
			var fired bool
			for _, ev := range tc.events {
				press, _ := c.apply(ev.code, ev.value)
				fired = fired || press
			}
			if fired != tc.want {
				t.Errorf("press fired = %v, want %v", fired, tc.want)
			}
		})
	}
}

func TestChordReleaseOnlyAfterPress(t *testing.T) {
	var c chord

	// Release of space that was never part of the chord must not fire.
	if _, release := c.apply(codeSpace, valRelease); release {
		t.Fatal("release fired without a prior chord press")
	}

	c.apply(codeLCtrl, valPress)
	c.apply(codeLShift, valPress)
	if press, _ := c.apply(codeSpace, valPress); !press {
		t.Fatal("chord press not detected")
	}

	// Repeat events (value 2) must not re-fire.
	if press, release := c.apply(codeSpace, 2); press || release {
		t.Fatal("key repeat fired an edge")
	}

	// Releasing modifiers first does not end the press; space does.
	c.apply(codeLCtrl, valRelease)
	if _, release := c.apply(codeSpace, valRelease); !release {
		t.Fatal("release not detected after space up")
	}
}
