package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/gradevault/pkg/middleware"
	"github.com/yeisme/gradevault/pkg/scheduler"
)

func getScheduler(c *gin.Context) *scheduler.Scheduler {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
	}

	return sched
}

// SchedulerJobs 返回所有任务信息.
func SchedulerJobs(c *gin.Context) {
	if sched := getScheduler(c); sched != nil {
		c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
	}
}

// SchedulerQueueWaiting 返回排队中的任务数.
func SchedulerQueueWaiting(c *gin.Context) {
	if sched := getScheduler(c); sched != nil {
		c.JSON(http.StatusOK, gin.H{"waiting": sched.JobsWaitingInQueue()})
	}
}

// SchedulerRunJob 立即运行指定任务.
func SchedulerRunJob(c *gin.Context) {
	sched := getScheduler(c)
	if sched == nil {
		return
	}

	name := c.Param("name")
	if err := sched.RunNow(name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scheduler.ErrJobNotFound) {
			status = http.StatusNotFound
		}

		c.JSON(status, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered", "job": name})
}
