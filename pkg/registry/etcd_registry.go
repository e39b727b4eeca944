package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"

	"stem-service/pkg/config"
	"stem-service/pkg/logger"
)

// Instance is the value stored under the service key.
type Instance struct {
	ID           string    `json:"id"`
	Addr         string    `json:"addr"`
	Hostname     string    `json:"hostname"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ServiceRegistry registers this instance into etcd under a leased key.
type ServiceRegistry struct {
	client      *clientv3.Client
	serviceName string
	instance    Instance
	ttl         int64

	mu      sync.Mutex
	leaseID clientv3.LeaseID
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewServiceRegistry creates a new ServiceRegistry instance. An empty service id gets a random one.
func NewServiceRegistry(etcdCfg config.EtcdConfig, svcCfg config.ServiceRegistryConfig, serviceAddr string) (*ServiceRegistry, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   etcdCfg.Endpoints,
		DialTimeout: etcdCfg.DialTimeout,
		Username:    etcdCfg.Username,
		Password:    etcdCfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	id := svcCfg.ServiceID
	if id == "" {
		id = uuid.NewString()
	}
	hostname, _ := os.Hostname()

	ttl := int64(svcCfg.TTL.Seconds())
	if ttl < 5 {
		ttl = 5
	}

	return &ServiceRegistry{
		client:      client,
		serviceName: svcCfg.ServiceName,
		instance:    Instance{ID: id, Addr: serviceAddr, Hostname: hostname},
		ttl:         ttl,
	}, nil
}

// Key is the etcd key of this instance.
func (r *ServiceRegistry) Key() string {
	return ServiceKey(r.serviceName, r.instance.ID)
}

// ServiceKey builds /services/<name>/<id>.
func ServiceKey(serviceName, id string) string {
	return fmt.Sprintf("/services/%s/%s", serviceName, id)
}

func (r *ServiceRegistry) Name() string {
	return "etcd-registry"
}

// Start grants a lease, writes the instance record and keeps the lease alive until Stop.
func (r *ServiceRegistry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	leaseResp, err := r.client.Grant(ctx, r.ttl)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}
	r.leaseID = leaseResp.ID

	r.instance.RegisteredAt = time.Now()
	value, err := json.Marshal(r.instance)
	if err != nil {
		return fmt.Errorf("marshal instance: %w", err)
	}
	if _, err := r.client.Put(ctx, r.Key(), string(value), clientv3.WithLease(r.leaseID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	kaCtx, cancel := context.WithCancel(context.Background())
	ch, err := r.client.KeepAlive(kaCtx, r.leaseID)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to keep alive lease: %w", err)
	}
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.drainKeepAlive(kaCtx, ch)

	logger.Infof("Service registered key=%s addr=%s ttl=%ds", r.Key(), r.instance.Addr, r.ttl)
	return nil
}

func (r *ServiceRegistry) drainKeepAlive(ctx context.Context, ch <-chan *clientv3.LeaseKeepAliveResponse) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ka, ok := <-ch:
			if !ok || ka == nil {
				logger.Warnf("etcd keep alive channel closed key=%s", r.Key())
				return
			}
		}
	}
}

// Stop revokes the lease and closes the etcd client.
func (r *ServiceRegistry) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		<-r.done
		r.cancel = nil
	}
	if r.leaseID != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if _, err := r.client.Revoke(ctx, r.leaseID); err != nil {
			logger.Warnf("Failed to revoke lease key=%s err=%v", r.Key(), err)
		}
		cancel()
		r.leaseID = 0
	}
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close etcd client: %w", err)
	}
	logger.Infof("Service deregistered key=%s", r.Key())
	return nil
}
