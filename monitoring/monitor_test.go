package monitoring

import (
	"encoding/json"
	"net/http/httptest"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rriplab/repl"
)

var _ = Describe("Monitor", func() {
	var (
		monitor *Monitor
		engine  *repl.Engine
	)

	BeforeEach(func() {
		engine = repl.DRRIPBuilder().WithGeometry(64, 4).Build("LLC0")

		monitor = NewMonitor()
		monitor.RegisterEngine(engine)
	})

	It("should list registered engines", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/engines", nil)

		monitor.listEngines(w, r)

		var names []string
		Expect(json.Unmarshal(w.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"LLC0"}))
	})

	It("should serve engine statistics", func() {
		way := engine.SelectVictim(0, 0, 0x400, 0x1000, repl.Load)
		engine.Update(0, 0, way, 0x400, 0x1000, 0, repl.Load, false)
		engine.Update(0, 0, way, 0x400, 0x1000, 0, repl.Load, true)

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/stats/LLC0", nil)
		r = mux.SetURLVars(r, map[string]string{"name": "LLC0"})

		monitor.engineStats(w, r)

		var rsp statsRsp
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Accesses).To(Equal(uint64(2)))
		Expect(rsp.Hits).To(Equal(uint64(1)))
		Expect(rsp.PSEL).NotTo(BeNil())
	})

	It("should 404 on unknown engines", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/stats/LLC9", nil)
		r = mux.SetURLVars(r, map[string]string{"name": "LLC9"})

		monitor.engineStats(w, r)

		Expect(w.Code).To(Equal(404))
	})

	It("should reject privileged port numbers", func() {
		monitor.WithPortNumber(80)

		Expect(monitor.portNumber).To(Equal(0))
	})
})
