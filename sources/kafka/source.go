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

// Package kafka provides a source that reads a single partition of a Kafka
// topic. The cursor is the offset of the next message to read.
package kafka

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/conduitio/conduit-commons/config"
	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"github.com/goccy/go-json"
	"go.uber.org/multierr"
)

// offsetClient returns the oldest and newest offsets of a partition.
// sarama.Client implements it.
type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Close() error
}

// connectFunc connects to the brokers.
type connectFunc func(brokers []string, cfg *sarama.Config) (offsetClient, sarama.Consumer, error)

func connect(brokers []string, cfg *sarama.Config) (offsetClient, sarama.Consumer, error) {
	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, nil, err
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, consumer, nil
}

type Source struct {
	sdk.UnimplementedSource

	config       Config
	saramaConfig *sarama.Config
	connect      connectFunc

	client   offsetClient
	consumer sarama.Consumer

	// pc is kept open between pages, next is the offset it returns next.
	pc   sarama.PartitionConsumer
	next int64
}

// NewSource returns the source wrapped into the default middleware.
func NewSource() sdk.Source {
	return sdk.SourceWithMiddleware(&Source{connect: connect}, sdk.DefaultSourceMiddleware()...)
}

func (s *Source) Parameters() config.Parameters {
	return s.config.Parameters()
}

func (s *Source) Configure(_ context.Context, cfg config.Config) error {
	if err := sdk.Util.ParseConfig(cfg, &s.config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	saramaCfg, err := s.config.Validate()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	s.saramaConfig = saramaCfg
	return nil
}

func (s *Source) Open(ctx context.Context) error {
	if s.connect == nil {
		s.connect = connect
	}
	client, consumer, err := s.connect(s.config.brokers(), s.saramaConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to brokers: %w", classify(err))
	}
	s.client = client
	s.consumer = consumer

	sdk.Logger(ctx).Info().
		Strs("brokers", s.config.brokers()).
		Str("topic", s.config.Topic).
		Int("partition", s.config.Partition).
		Msg("connected to kafka")
	return nil
}

func (s *Source) Key() string {
	if s.config.Key != "" {
		return s.config.Key
	}
	return s.config.Topic + "/" + strconv.Itoa(s.config.Partition)
}

func (s *Source) partition() int32 {
	return int32(s.config.Partition) //nolint:gosec // validated in Configure
}

func (s *Source) FetchPage(ctx context.Context, cursor any, pageSize int) (sdk.Page, error) {
	offset, err := s.startOffset(cursor)
	if err != nil {
		return sdk.Page{}, err
	}
	newest, err := s.client.GetOffset(s.config.Topic, s.partition(), sarama.OffsetNewest)
	if err != nil {
		return sdk.Page{}, fmt.Errorf("failed to get newest offset: %w", classify(err))
	}
	if offset >= newest {
		// nothing new since the last sync
		return sdk.Page{}, nil
	}

	pc, err := s.partitionConsumer(ctx, offset)
	if err != nil {
		return sdk.Page{}, err
	}

	records := make([]sdk.Record, 0, pageSize)
	next := offset
	errs := pc.Errors()
loop:
	for len(records) < pageSize && next < newest {
		select {
		case msg, ok := <-pc.Messages():
			if !ok {
				s.closePartition(ctx)
				return sdk.Page{}, sdk.Transient(errors.New("partition consumer closed unexpectedly"))
			}
			if msg.Offset < next {
				continue
			}
			records = append(records, toRecord(msg))
			next = msg.Offset + 1
		case cerr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.closePartition(ctx)
			return sdk.Page{}, fmt.Errorf("failed to consume partition: %w", classify(cerr.Err))
		case <-time.After(s.config.PollTimeout):
			sdk.Logger(ctx).Debug().
				Int64("offset", next).
				Int64("newest", newest).
				Msg("poll timeout reached, returning incomplete page")
			break loop
		case <-ctx.Done():
			return sdk.Page{}, ctx.Err()
		}
	}
	s.next = next

	page := sdk.Page{Records: records}
	if len(records) > 0 {
		page.NextCursor = next
	}
	return page, nil
}

// startOffset returns the offset the page starts at. Without a cursor the
// partition is read from the oldest retained message.
func (s *Source) startOffset(cursor any) (int64, error) {
	if cursor == nil {
		oldest, err := s.client.GetOffset(s.config.Topic, s.partition(), sarama.OffsetOldest)
		if err != nil {
			return 0, fmt.Errorf("failed to get oldest offset: %w", classify(err))
		}
		return oldest, nil
	}
	return parseOffset(cursor)
}

// partitionConsumer returns the open partition consumer if it continues at
// offset, otherwise it starts a new one.
func (s *Source) partitionConsumer(ctx context.Context, offset int64) (sarama.PartitionConsumer, error) {
	if s.pc != nil && s.next == offset {
		return s.pc, nil
	}
	s.closePartition(ctx)

	pc, err := s.consumer.ConsumePartition(s.config.Topic, s.partition(), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to consume partition %d from offset %d: %w", s.partition(), offset, classify(err))
	}
	s.pc = pc
	s.next = offset
	return pc, nil
}

func (s *Source) closePartition(ctx context.Context) {
	if s.pc == nil {
		return
	}
	if err := s.pc.Close(); err != nil {
		sdk.Logger(ctx).Warn().Err(err).Msg("failed to close partition consumer")
	}
	s.pc = nil
}

func (s *Source) Teardown(ctx context.Context) error {
	s.closePartition(ctx)
	var err error
	if s.consumer != nil {
		err = multierr.Append(err, s.consumer.Close())
	}
	if s.client != nil {
		err = multierr.Append(err, s.client.Close())
	}
	return err
}

// parseOffset converts a cursor restored from the state into an offset.
func parseOffset(cursor any) (int64, error) {
	switch c := cursor.(type) {
	case int64:
		return c, nil
	case int:
		return int64(c), nil
	case float64:
		if c != math.Trunc(c) {
			return 0, fmt.Errorf("offset %v is not an integer", c)
		}
		return int64(c), nil
	case json.Number:
		return c.Int64()
	case string:
		return strconv.ParseInt(c, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected offset type %T", cursor)
	}
}

func toRecord(msg *sarama.ConsumerMessage) sdk.Record {
	rec := sdk.Record{
		"offset":    msg.Offset,
		"partition": msg.Partition,
		"timestamp": msg.Timestamp,
		"value":     decodeValue(msg.Value),
	}
	if msg.Key != nil {
		rec["key"] = string(msg.Key)
	} else {
		rec["key"] = nil
	}
	if len(msg.Headers) > 0 {
		headers := make(map[string]any, len(msg.Headers))
		for _, h := range msg.Headers {
			if h != nil {
				headers[string(h.Key)] = string(h.Value)
			}
		}
		rec["headers"] = headers
	}
	return rec
}

// decodeValue returns JSON objects as maps, so their fields become columns.
// Any other value is returned as a string.
func decodeValue(v []byte) any {
	if v == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err == nil {
			return m
		}
	}
	return string(v)
}

// classify marks broker connectivity errors as transient and SASL failures
// as authentication errors.
func classify(err error) error {
	switch {
	case errors.Is(err, sarama.ErrSASLAuthenticationFailed),
		errors.Is(err, sarama.ErrTopicAuthorizationFailed),
		errors.Is(err, sarama.ErrClusterAuthorizationFailed):
		return sdk.Unauthenticated(err)
	case errors.Is(err, sarama.ErrOutOfBrokers),
		errors.Is(err, sarama.ErrNotConnected),
		errors.Is(err, sarama.ErrBrokerNotAvailable),
		errors.Is(err, sarama.ErrLeaderNotAvailable),
		errors.Is(err, sarama.ErrNotLeaderForPartition),
		errors.Is(err, sarama.ErrRequestTimedOut),
		errors.Is(err, sarama.ErrNetworkException),
		errors.Is(err, sarama.ErrShuttingDown):
		return sdk.Transient(err)
	}
	return err
}
