package events

import (
	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const (
	DriverKafka  = "kafka"
	DriverRedis  = "redis"
	DriverAMQP   = "amqp"
	DriverMemory = "memory"
)

// NewBus builds the backend named by cfg.Broker.Driver. redisClient is only
// needed for the redis driver.
func NewBus(cfg *config.Config, redisClient *redis.Client, instanceID string, log logger.Logger) (Bus, error) {
	switch cfg.Broker.Driver {
	case DriverKafka, "":
		return NewKafkaBus(cfg.Broker.Kafka, instanceID, log), nil
	case DriverRedis:
		if redisClient == nil {
			return nil, errors.New("redis stream bus needs a redis client")
		}
		return NewRedisStreamBus(redisClient, cfg.Broker.RedisStream, instanceID, log), nil
	case DriverAMQP:
		return NewAMQPBus(cfg.Broker.AMQP, instanceID, log)
	case DriverMemory:
		return NewMemoryBus(log), nil
	default:
		return nil, errors.Errorf("unknown broker driver %q", cfg.Broker.Driver)
	}
}
