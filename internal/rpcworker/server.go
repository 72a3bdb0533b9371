package rpcworker

import (
	"fmt"

	"github.com/pydron/pydron/internal/value"
	"github.com/pydron/pydron/internal/worker"
)

// RPCServer exposes a local worker.RemoteWorker over net/rpc. Method names
// and shapes follow the classic net/rpc convention go-plugin itself uses
// in its documentation and examples: exported methods of the form
// func(args T, reply *U) error.
type RPCServer struct {
	Local    worker.RemoteWorker
	Registry Registry
}

func (s *RPCServer) FetchFrom(args FetchFromArgs, reply *FetchFromReply) error {
	source, ok := s.Registry.Lookup(args.Source)
	if !ok {
		return unknownWorkerError(args.Source)
	}
	res, err := s.Local.FetchFrom(backgroundCtx(), source, args.ID)
	if err != nil {
		return err
	}
	if res == nil {
		reply.NoTransfer = true
		return nil
	}
	reply.ByteCount = res.ByteCount
	reply.DurationNS = int64(res.Duration)
	return nil
}

func (s *RPCServer) GetCucumber(args IDArgs, reply *CucumberReply) error {
	cucumber, err := s.Local.GetCucumber(backgroundCtx(), args.ID)
	if err != nil {
		return err
	}
	reply.Cucumber = cucumber
	return nil
}

func (s *RPCServer) Free(args IDArgs, reply *struct{}) error {
	return s.Local.Free(backgroundCtx(), args.ID)
}

func (s *RPCServer) Copy(args CopyArgs, reply *struct{}) error {
	return s.Local.Copy(backgroundCtx(), args.Source, args.Dest)
}

func (s *RPCServer) Evaluate(args EvaluateArgs, reply *EvaluateReply) error {
	inputs, err := s.fromWireInputs(args.Inputs)
	if err != nil {
		return err
	}
	result, err := s.Local.Evaluate(backgroundCtx(), args.Tick, args.Task, inputs, args.NosendPorts)
	if err != nil {
		return err
	}
	reply.Outputs = result.Outputs
	reply.DurationNS = int64(result.Duration)
	reply.DataSizes = result.DataSizes
	reply.TransferResults = make(map[string]TransferResultWire, len(result.TransferResults))
	for port, tr := range result.TransferResults {
		if tr == nil {
			continue
		}
		reply.TransferResults[port] = TransferResultWire{ByteCount: tr.ByteCount, DurationNS: int64(tr.Duration)}
	}
	return nil
}

func unknownWorkerError(id value.WorkerID) error {
	return fmt.Errorf("rpcworker: unknown worker %s", id)
}
