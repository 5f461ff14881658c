package opcuaexport

import (
	"fmt"

	"github.com/krugerplant/linesim/internal/session"
)

// PlantNamespace is the OPC UA namespace index every plant tag is
// registered under.
const PlantNamespace uint16 = 2

// BuildNodeDefinitions enumerates the tags this exporter publishes for
// a session's topology: one OEE/JPH/cars-produced triple per line, and
// one level/status pair per buffer. Node names are stable across
// restarts since they derive from topology keys, not runtime indices.
func BuildNodeDefinitions(sess *session.Session) []NodeDefinition {
	var defs []NodeDefinition

	for _, shop := range sess.Topo.Shops {
		for _, line := range shop.Lines {
			defs = append(defs,
				NodeDefinition{
					Name: line.Key + ".OEE", DisplayName: line.Key + " OEE",
					Description: "Line OEE percentage", DataType: DataTypeDouble, Unit: "%", InitialValue: 0.0,
				},
				NodeDefinition{
					Name: line.Key + ".JPHDynamic", DisplayName: line.Key + " JPH",
					Description: "Jobs per hour, dynamic", DataType: DataTypeDouble, Unit: "jph", InitialValue: 0.0,
				},
				NodeDefinition{
					Name: line.Key + ".CarsProduced", DisplayName: line.Key + " cars produced",
					Description: "Cumulative cars produced this shift", DataType: DataTypeInt64, InitialValue: int64(0),
				},
			)
		}
	}

	for _, id := range sess.Buffers.IDs() {
		defs = append(defs,
			NodeDefinition{
				Name: id + ".Count", DisplayName: id + " count",
				Description: "Current buffer occupancy", DataType: DataTypeInt64, InitialValue: int64(0),
			},
			NodeDefinition{
				Name: id + ".Status", DisplayName: id + " status",
				Description: "EMPTY / AVAILABLE / FULL", DataType: DataTypeString, InitialValue: "EMPTY",
			},
		)
	}

	return defs
}

// Publish pushes the session's current snapshot into the already
// registered PlantNamespace tags. Called on a tick listener alongside
// the EventSink fan-out, not as part of the tick's run-to-completion
// contract — a slow or absent OPC UA server must never stall a tick.
func Publish(srv *Server, sess *session.Session, now int64) {
	snap := sess.Sched.Snapshot(now)

	values := make(map[string]interface{}, len(snap.Shops)*3+len(snap.Buffers)*2)
	for _, shop := range snap.Shops {
		for _, line := range shop.Lines {
			values[line.Key+".OEE"] = line.OEE
			values[line.Key+".JPHDynamic"] = line.JPHDynamic
			values[line.Key+".CarsProduced"] = line.CarsProduced
		}
	}
	for _, b := range snap.Buffers {
		values[fmt.Sprintf("%s.Count", b.ID)] = int64(b.Count)
		values[fmt.Sprintf("%s.Status", b.ID)] = b.Status
	}

	srv.UpdateNamespaceValues(PlantNamespace, values)
}
