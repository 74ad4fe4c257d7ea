// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNewTheme_ExplicitMode(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark || dark.Name() != "dark" {
		t.Errorf("NewTheme(dark) = %s", dark.Name())
	}
	if !lipgloss.HasDarkBackground() {
		t.Error("dark theme should set the renderer background")
	}

	light := NewTheme("LIGHT")
	if light.IsDark || light.Name() != "light" {
		t.Errorf("NewTheme(LIGHT) = %s", light.Name())
	}
	if lipgloss.HasDarkBackground() {
		t.Error("light theme should clear the renderer background")
	}
}

func TestTheme_Toggle(t *testing.T) {
	theme := NewTheme("light")
	theme.Toggle()
	if !theme.IsDark {
		t.Fatal("Toggle() should switch to dark")
	}
	if theme.GlamourStyle() != "dark" || theme.ChromaStyle() != "monokai" {
		t.Errorf("dark styles = %s/%s", theme.GlamourStyle(), theme.ChromaStyle())
	}

	theme.Toggle()
	if theme.IsDark {
		t.Fatal("Toggle() should switch back to light")
	}
	if theme.GlamourStyle() != "light" || theme.ChromaStyle() != "github" {
		t.Errorf("light styles = %s/%s", theme.GlamourStyle(), theme.ChromaStyle())
	}
}

func TestTheme_StylesRender(t *testing.T) {
	theme := NewTheme("dark")

	tests := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"UserBubble", theme.UserBubble},
		{"AssistantBubble", theme.AssistantBubble},
		{"Sidebar", theme.Sidebar},
		{"InputContainer", theme.InputContainer},
		{"ErrorBar", theme.ErrorBar},
		{"Toast", theme.Toast},
	}
	for _, tt := range tests {
		if tt.style.Render("test") == "" {
			t.Errorf("%s style rendered nothing", tt.name)
		}
	}
}
