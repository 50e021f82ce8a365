// Copyright © 2024 Meroxa, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kafka

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/IBM/sarama"
	"github.com/conduitio/conduit-commons/config"
	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"go.uber.org/multierr"
)

type Config struct {
	// Brokers is a comma separated list of broker addresses.
	Brokers string `json:"brokers"`
	Topic   string `json:"topic"`
	// Partition is the partition of the topic the source reads.
	Partition int `json:"partition"`
	// PollTimeout is how long a page waits for the next message before it
	// is returned incomplete.
	PollTimeout time.Duration `json:"pollTimeout"`
	ClientID    string        `json:"clientId"`
	// Key is the state key of the source.
	Key string `json:"key"`
}

func (Config) Parameters() config.Parameters {
	return config.Parameters{
		"brokers": {
			Default:     "",
			Description: "Comma separated list of Kafka broker addresses, e.g. localhost:9092.",
			Type:        config.ParameterTypeString,
			Validations: []config.Validation{
				config.ValidationRequired{},
			},
		},
		"topic": {
			Default:     "",
			Description: "Topic to read messages from.",
			Type:        config.ParameterTypeString,
			Validations: []config.Validation{
				config.ValidationRequired{},
			},
		},
		"partition": {
			Default:     "0",
			Description: "Partition of the topic to read messages from.",
			Type:        config.ParameterTypeInt,
		},
		"pollTimeout": {
			Default:     "2s",
			Description: "Maximum time a page waits for the next message.",
			Type:        config.ParameterTypeDuration,
		},
		"clientId": {
			Default:     "connector-sdk",
			Description: "Client ID sent to the brokers.",
			Type:        config.ParameterTypeString,
		},
		"key": {
			Default:     "",
			Description: "Key under which the offset is stored in the state. Defaults to topic/partition.",
			Type:        config.ParameterTypeString,
		},
	}
}

func (c Config) brokers() []string {
	return sdk.Util.SplitList(c.Brokers)
}

// Validate checks the parsed configuration and returns the sarama config
// used to connect to the brokers.
func (c Config) Validate() (*sarama.Config, error) {
	var err error
	if len(c.brokers()) == 0 {
		err = multierr.Append(err, errors.New("at least one broker is required"))
	}
	if c.Partition < 0 || c.Partition > math.MaxInt32 {
		err = multierr.Append(err, fmt.Errorf("partition must be between 0 and %d, got %d", math.MaxInt32, c.Partition))
	}
	if c.PollTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("pollTimeout must be > 0, got %s", c.PollTimeout))
	}
	if err != nil {
		return nil, err
	}

	cfg := sarama.NewConfig()
	if c.ClientID != "" {
		cfg.ClientID = c.ClientID
	}
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	return cfg, nil
}
