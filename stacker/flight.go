package stacker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/flight"
	flightgen "github.com/apache/arrow/go/v14/arrow/flight/gen/flight"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/spatialbytes/neonstack/core"
)

// FlightServer serves a stacked bundle over Arrow Flight. Each table is a
// flight addressed by its output name; tickets are table names.
type FlightServer struct {
	flightgen.UnimplementedFlightServiceServer
	bundle *core.Bundle
	mem    memory.Allocator
	port   int
}

func NewFlightServer(bundle *core.Bundle, port int) *FlightServer {
	return &FlightServer{
		bundle: bundle,
		mem:    memory.DefaultAllocator,
		port:   port,
	}
}

// ListFlights enumerates the bundle's tables.
func (s *FlightServer) ListFlights(criteria *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	for _, name := range s.bundle.Names() {
		if _, ok := s.bundle.Tables[name]; !ok {
			continue
		}
		info, err := s.flightInfo(name)
		if err != nil {
			return err
		}
		if err := stream.Send(info); err != nil {
			return err
		}
	}
	return nil
}

// GetFlightInfo resolves one table by descriptor path.
func (s *FlightServer) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	if desc.Type != flight.DescriptorPATH || len(desc.Path) != 1 {
		return nil, fmt.Errorf("unsupported flight descriptor, expected a single table name path")
	}
	return s.flightInfo(desc.Path[0])
}

func (s *FlightServer) flightInfo(name string) (*flight.FlightInfo, error) {
	tab, ok := s.bundle.Tables[name]
	if !ok {
		return nil, fmt.Errorf("no table named %s in bundle", name)
	}
	return &flight.FlightInfo{
		FlightDescriptor: &flight.FlightDescriptor{
			Type: flight.DescriptorPATH,
			Path: []string{name},
		},
		Endpoint: []*flight.FlightEndpoint{
			{
				Ticket:   &flight.Ticket{Ticket: []byte(name)},
				Location: []*flight.Location{{Uri: fmt.Sprintf("grpc://localhost:%d", s.port)}},
			},
		},
		TotalRecords: int64(tab.NumRows()),
		TotalBytes:   -1,
	}, nil
}

// DoGet streams one table as a single Arrow record batch.
func (s *FlightServer) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	tab, ok := s.bundle.Tables[string(ticket.Ticket)]
	if !ok {
		return fmt.Errorf("no table named %s in bundle", string(ticket.Ticket))
	}
	rec, err := tableToArrow(tab, s.mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()))
	if err := writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	return writer.Close()
}

func (s *FlightServer) GetSchema(ctx context.Context, desc *flight.FlightDescriptor) (*flight.SchemaResult, error) {
	return nil, fmt.Errorf("schema requests not supported")
}

func (s *FlightServer) DoPut(stream flight.FlightService_DoPutServer) error {
	return fmt.Errorf("put not supported")
}

func (s *FlightServer) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	return fmt.Errorf("action %s not supported", action.Type)
}

func (s *FlightServer) DoExchange(stream flight.FlightService_DoExchangeServer) error {
	return fmt.Errorf("exchange not supported")
}

func (s *FlightServer) Handshake(stream flight.FlightService_HandshakeServer) error {
	for {
		req, err := stream.Recv()
		if err != nil {
			return err
		}
		if err := stream.Send(&flight.HandshakeResponse{Payload: req.Payload}); err != nil {
			return err
		}
	}
}

// tableToArrow converts a stacked table into one Arrow record, preserving
// column order. Column types are inferred from the first non-null value,
// which is uniform per column after assembly.
func tableToArrow(tab *core.Table, mem memory.Allocator) (arrow.Record, error) {
	fields := make([]arrow.Field, len(tab.Columns))
	for i, col := range tab.Columns {
		fields[i] = arrow.Field{Name: col, Type: columnArrowType(tab, col), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()
	for i, col := range tab.Columns {
		fb := builder.Field(i)
		for _, row := range tab.Rows {
			appendArrowValue(fb, row[col])
		}
	}
	return builder.NewRecord(), nil
}

func columnArrowType(tab *core.Table, col string) arrow.DataType {
	for _, row := range tab.Rows {
		switch row[col].(type) {
		case nil:
			continue
		case int64:
			return arrow.PrimitiveTypes.Int64
		case float64:
			return arrow.PrimitiveTypes.Float64
		case bool:
			return arrow.FixedWidthTypes.Boolean
		case time.Time:
			return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
		default:
			return arrow.BinaryTypes.String
		}
	}
	return arrow.BinaryTypes.String
}

func appendArrowValue(b array.Builder, v any) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch fb := b.(type) {
	case *array.Int64Builder:
		switch tv := v.(type) {
		case int64:
			fb.Append(tv)
		case float64:
			fb.Append(int64(tv))
		case string:
			if n, err := strconv.ParseInt(tv, 10, 64); err == nil {
				fb.Append(n)
			} else {
				fb.AppendNull()
			}
		default:
			fb.AppendNull()
		}
	case *array.Float64Builder:
		switch tv := v.(type) {
		case float64:
			fb.Append(tv)
		case int64:
			fb.Append(float64(tv))
		case string:
			if f, err := strconv.ParseFloat(tv, 64); err == nil {
				fb.Append(f)
			} else {
				fb.AppendNull()
			}
		default:
			fb.AppendNull()
		}
	case *array.BooleanBuilder:
		if tv, ok := v.(bool); ok {
			fb.Append(tv)
		} else {
			fb.AppendNull()
		}
	case *array.TimestampBuilder:
		switch tv := v.(type) {
		case time.Time:
			fb.Append(arrow.Timestamp(tv.UTC().UnixMicro()))
		case string:
			if t, err := time.Parse(time.RFC3339Nano, tv); err == nil {
				fb.Append(arrow.Timestamp(t.UTC().UnixMicro()))
			} else {
				fb.AppendNull()
			}
		default:
			fb.AppendNull()
		}
	case *array.StringBuilder:
		fb.Append(formatValue(v))
	default:
		b.AppendNull()
	}
}

// StartFlightServer serves bundle over Arrow Flight until the listener
// fails or the server is stopped.
func StartFlightServer(ctx context.Context, bundle *core.Bundle, port int) error {
	server := NewFlightServer(bundle, port)
	s := grpc.NewServer()
	flightgen.RegisterFlightServiceServer(s, server)
	reflection.Register(s)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	core.Infof(ctx, "Flight server listening on port %d", port)
	return s.Serve(lis)
}
