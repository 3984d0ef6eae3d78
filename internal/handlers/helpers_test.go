package handlers

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"relay-service/internal/middleware"
	"relay-service/internal/models"
	"relay-service/internal/ws"
)

type recordingNotifier struct {
	mu           sync.Mutex
	direct       []models.DirectMessage
	group        []models.GroupMessage
	addedGroups  []models.Group
	addedMembers [][]string
}

func (n *recordingNotifier) NotifyNewMessage(_ context.Context, msg models.DirectMessage) ws.Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.direct = append(n.direct, msg)
	return ws.Offline
}

func (n *recordingNotifier) NotifyGroupMessage(_ context.Context, msg models.GroupMessage) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.group = append(n.group, msg)
	return 0
}

func (n *recordingNotifier) NotifyGroupAdded(_ context.Context, group models.Group, members []string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.addedGroups = append(n.addedGroups, group)
	n.addedMembers = append(n.addedMembers, members)
	return 0
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func withUser(param string) gin.HandlerFunc {
	return middleware.Identity(param)
}
