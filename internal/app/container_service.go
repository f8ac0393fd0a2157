package app

import (
	"context"

	"github.com/bazaar-next/internal/provider"
)

// containerService 将容器资源释放挂到运行器的停止流程
type containerService struct {
	container *provider.Container
}

func newContainerService(c *provider.Container) *containerService {
	return &containerService{container: c}
}

func (s *containerService) Name() string {
	return "container"
}

func (s *containerService) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *containerService) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.container.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
