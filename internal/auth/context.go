package auth

import (
	"context"

	robots "fleet-cloud/internal/robots/domain"
)

type contextKey string

const (
	contextKeyRobot contextKey = "auth.robot"
	contextKeyAdmin contextKey = "auth.admin_subject"
)

// WithRobot stores the authenticated robot in context.
func WithRobot(ctx context.Context, robot robots.Robot) context.Context {
	return context.WithValue(ctx, contextKeyRobot, robot)
}

// RobotFromContext extracts the authenticated robot.
func RobotFromContext(ctx context.Context) (robots.Robot, bool) {
	if ctx == nil {
		return robots.Robot{}, false
	}
	robot, ok := ctx.Value(contextKeyRobot).(robots.Robot)
	return robot, ok
}

// WithAdminSubject stores the authenticated admin subject in context.
func WithAdminSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, contextKeyAdmin, subject)
}

// AdminSubjectFromContext extracts the authenticated admin subject.
func AdminSubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if subject, ok := ctx.Value(contextKeyAdmin).(string); ok {
		return subject
	}
	return ""
}
