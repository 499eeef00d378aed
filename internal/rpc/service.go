// Package rpc serves the booking lifecycle over gRPC as booking.v1.BookingService.
package rpc

import (
	"context"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"salon-booking/internal/apperr"
	"salon-booking/internal/booking"
	"salon-booking/internal/middleware"
)

const (
	ServiceName             = "booking.v1.BookingService"
	CheckAvailabilityMethod = "/" + ServiceName + "/CheckAvailability"
	CreateEventMethod       = "/" + ServiceName + "/CreateEvent"
	CancelEventMethod       = "/" + ServiceName + "/CancelEvent"
)

type BookingServer interface {
	CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error)
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*CreateEventResponse, error)
	CancelEvent(ctx context.Context, req *CancelEventRequest) (*CancelEventResponse, error)
}

// ServerCodec must be passed to grpc.NewServer for the booking messages to decode.
func ServerCodec() grpc.ServerOption { return grpc.ForceServerCodec(codec{}) }

func Register(gs *grpc.Server, srv BookingServer) {
	gs.RegisterService(&serviceDesc, srv)
}

type Server struct {
	booking *booking.Manager
}

func NewServer(mgr *booking.Manager) *Server {
	return &Server{booking: mgr}
}

func (s *Server) CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error) {
	events, err := s.booking.CheckAvailability(ctx, req.Date, req.ProfessionalName)
	if err != nil {
		return nil, toStatus(CheckAvailabilityMethod, err)
	}
	out := &CheckAvailabilityResponse{Events: make([]*Event, 0, len(events))}
	for i := range events {
		e := &events[i]
		out.Events = append(out.Events, &Event{
			Id:               e.ID,
			Title:            e.Title,
			UserId:           e.UserID,
			ProfessionalName: e.ProfessionalName,
			Start:            timestamppb.New(e.Start),
			Date:             e.Date(),
			Hour:             e.Hour(),
		})
	}
	return out, nil
}

func (s *Server) CreateEvent(ctx context.Context, req *CreateEventRequest) (*CreateEventResponse, error) {
	a, ok := middleware.ActorFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "login required")
	}
	id, err := s.booking.Create(ctx, booking.CreateInput{
		ProfessionalName: req.ProfessionalName,
		Date:             req.Date,
		Time:             req.Time,
		Title:            req.Title,
		OwnerID:          a.UserID,
	})
	if err != nil {
		return nil, toStatus(CreateEventMethod, err)
	}
	return &CreateEventResponse{Id: id}, nil
}

// CancelEvent reports a failed notification in the response rather than as
// an error, since the event is already gone.
func (s *Server) CancelEvent(ctx context.Context, req *CancelEventRequest) (*CancelEventResponse, error) {
	a, ok := middleware.ActorFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "login required")
	}
	err := s.booking.Cancel(ctx, req.Id, a)
	if err == nil {
		return &CancelEventResponse{}, nil
	}
	if apperr.OnlyDelivery(err) {
		log.Printf("%s: notification failed: %v", CancelEventMethod, err)
		return &CancelEventResponse{NotificationFailed: true}, nil
	}
	return nil, toStatus(CancelEventMethod, err)
}

func toStatus(method string, err error) error {
	var code codes.Code
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		code = codes.InvalidArgument
	case apperr.KindNotFound:
		code = codes.NotFound
	case apperr.KindConflict:
		code = codes.AlreadyExists
	case apperr.KindAuth:
		code = codes.Unauthenticated
	case apperr.KindForbidden:
		code = codes.PermissionDenied
	default:
		log.Printf("%s: %v", method, err)
		code = codes.Internal
	}
	return status.Error(code, apperr.Message(err, "internal error"))
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAvailability", Handler: checkAvailabilityHandler},
		{MethodName: "CreateEvent", Handler: createEventHandler},
		{MethodName: "CancelEvent", Handler: cancelEventHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "booking/v1/booking.proto",
}

func checkAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckAvailabilityRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if ic == nil {
		return srv.(BookingServer).CheckAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CheckAvailabilityMethod}
	return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(BookingServer).CheckAvailability(ctx, req.(*CheckAvailabilityRequest))
	})
}

func createEventHandler(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateEventRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if ic == nil {
		return srv.(BookingServer).CreateEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateEventMethod}
	return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(BookingServer).CreateEvent(ctx, req.(*CreateEventRequest))
	})
}

func cancelEventHandler(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
	in := new(CancelEventRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if ic == nil {
		return srv.(BookingServer).CancelEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CancelEventMethod}
	return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(BookingServer).CancelEvent(ctx, req.(*CancelEventRequest))
	})
}

// Client calls BookingService over conn.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out message, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.ForceCodec(codec{})}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *Client) CheckAvailability(ctx context.Context, in *CheckAvailabilityRequest, opts ...grpc.CallOption) (*CheckAvailabilityResponse, error) {
	out := new(CheckAvailabilityResponse)
	if err := c.invoke(ctx, CheckAvailabilityMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateEvent(ctx context.Context, in *CreateEventRequest, opts ...grpc.CallOption) (*CreateEventResponse, error) {
	out := new(CreateEventResponse)
	if err := c.invoke(ctx, CreateEventMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CancelEvent(ctx context.Context, in *CancelEventRequest, opts ...grpc.CallOption) (*CancelEventResponse, error) {
	out := new(CancelEventResponse)
	if err := c.invoke(ctx, CancelEventMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
