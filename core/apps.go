package orchestration

import (
	"context"
	"fmt"
)

// appControl wraps the configured application controller so the fast path
// and the application tool can share one nil-safe surface.
type appControl struct {
	controller AppController
}

func (a *appControl) set(controller AppController) {
	if a != nil {
		a.controller = controller
	}
}

func (a *appControl) isConfigured() bool {
	return a != nil && a.controller != nil
}

func (a *appControl) LaunchApp(ctx context.Context, name string) error {
	if !a.isConfigured() {
		return fmt.Errorf("no application controller configured")
	}

	return a.controller.LaunchApp(ctx, name)
}

func (a *appControl) QuitApp(ctx context.Context, name string) error {
	if !a.isConfigured() {
		return fmt.Errorf("no application controller configured")
	}

	return a.controller.QuitApp(ctx, name)
}
